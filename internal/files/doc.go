// Package files discovers policy exports on disk.
//
// Discovery lists the files in a directory that the ingestion pipeline can
// decode and picks the most recent one. The server uses it to load the
// newest export from its data directory on start, and smectl uses it when
// analyze is pointed at a directory.
//
//	discovery := files.NewDiscovery(cfg.Paths.BaseDir)
//	latest, err := discovery.LatestPolicyFile(cfg.Paths.DataDir)
package files
