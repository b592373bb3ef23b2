// Package runtime fetches NW.js runtime distributions.
//
// Downloader is the contract the pipeline consumes. HTTPDownloader resolves
// release channels, downloads archives from the NW.js mirror into a cache and
// extracts them once. Coalescing wraps any Downloader so that concurrent and
// repeated requests for the same (version, flavor, platform, arch) key share
// a single underlying download.
package runtime
