// Package config provides configuration management for mixer-report.
//
// It utilizes Viper for loading configuration from environment variables and an
// optional .env file. Defaults come from the `default` struct tags of every
// section, which also registers each key for AutomaticEnv.
//
// # Configuration Structure
//
//   - Server: HTTP port, API key, site name
//   - Database: plant database (sources, report table, checkpoint log)
//   - Upstream: shared database read by the copy command
//   - Storage: S3/MinIO credentials and bucket for exports and the archive
//   - Log: logging level and format
//   - Pipeline: site profile path, cycle interval, source mode, lease, Kafka
//
// The site profile itself (shifts, column maps, output columns) is a separate
// document loaded by feature/mixer.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Pipeline.Interval())
package config
