package main

import "github.com/oshokin/nwjs-packager/cmd/nwjs-packager/cmd"

func main() {
	cmd.Execute()
}
