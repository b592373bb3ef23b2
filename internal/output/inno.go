package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/oshokin/nwjs-packager/internal/config"
	"github.com/oshokin/nwjs-packager/internal/fsutil"
	"github.com/oshokin/nwjs-packager/internal/logger"
	"github.com/oshokin/nwjs-packager/internal/service/common"
)

const (
	innoTool       = "ISCC"
	scriptFileMode = 0o644
)

// innoScript is the minimal installer generated when no script is configured.
//
//nolint:gochecknoglobals // Parsed once.
var innoScript = template.Must(template.New("iss").Parse(`; Generated by nwjs-packager
[Setup]
AppName={{.AppName}}
AppVersion={{.AppVersion}}
AppCopyright={{.AppCopyright}}
DefaultDirName={pf}\{{.AppName}}
DefaultGroupName={{.AppName}}
UninstallDisplayIcon={app}\{{.Executable}}
OutputDir={{.OutputDir}}
OutputBaseFilename={{.PackageName}}
Compression=lzma2
SolidCompression=yes

[Files]
Source: "{{.AppDir}}\*"; DestDir: "{app}"; Flags: ignoreversion recursesubdirs createallsubdirs

[Icons]
Name: "{group}\{{.AppName}}"; Filename: "{app}\{{.Executable}}"
Name: "{commondesktop}\{{.AppName}}"; Filename: "{app}\{{.Executable}}"

[Run]
Filename: "{app}\{{.Executable}}"; Description: "Launch {{.AppName}}"; Flags: nowait postinstall skipifsilent
`))

// Inno compiles a Windows installer with Inno Setup.
type Inno struct {
	runner   common.Runner
	compiler string
	script   string
}

// NewInno creates an installer generator. An empty script means one is
// generated from the app metadata next to the artifact.
func NewInno(runner common.Runner, compiler, script string) *Inno {
	return &Inno{
		runner:   runner,
		compiler: compiler,
		script:   script,
	}
}

// Kind implements Generator.
func (i *Inno) Kind() config.OutputKind {
	return config.OutputInnoSetup
}

// Build implements Generator. The installer is written to
// <OutputDir>/<PackageName>.exe whatever the script says.
func (i *Inno) Build(ctx context.Context, in Input) (string, error) {
	compiler, err := common.LookupTool(innoTool, i.compiler)
	if err != nil {
		return "", err
	}

	if err = os.MkdirAll(in.OutputDir, fsutil.DirMode); err != nil {
		return "", err
	}

	script := i.script
	if script == "" {
		if script, err = WriteInnoScript(in); err != nil {
			return "", err
		}

		logger.InfoKV(ctx, "Generated Inno Setup script", "path", script)
	}

	result, err := i.runner.Run(ctx, common.Command{
		Name: compiler,
		Args: []string{"/O" + in.OutputDir, "/F" + in.PackageName, script},
		Dir:  filepath.Dir(script),
	})
	if err != nil {
		return "", err
	}

	if result.ExitCode != 0 {
		logger.ErrorKV(ctx, "Inno Setup failed",
			"exit_code", result.ExitCode, "stdout", result.Stdout, "stderr", result.Stderr)

		return "", &CompilerError{ExitCode: result.ExitCode, Stderr: strings.TrimSpace(result.Stderr)}
	}

	return filepath.Join(in.OutputDir, in.PackageName+".exe"), nil
}

// WriteInnoScript renders the generated script to <OutputDir>/<PackageName>.iss.
func WriteInnoScript(in Input) (string, error) {
	var builder strings.Builder
	if err := innoScript.Execute(&builder, in); err != nil {
		return "", fmt.Errorf("render installer script: %w", err)
	}

	script := filepath.Join(in.OutputDir, in.PackageName+".iss")
	if err := os.WriteFile(script, []byte(builder.String()), scriptFileMode); err != nil {
		return "", err
	}

	return script, nil
}
