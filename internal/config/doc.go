// Package config defines configuration for the gladalerts CLI.
//
// Configuration is layered, later sources overriding earlier ones:
//   - Defaults ([Default])
//   - YAML configuration file ([LoadFromFile])
//   - .env file and environment variables (GLAD_ prefix)
//   - Command-line flags
//
// The resulting Config is built once in main and passed to every component.
//
// # Example
//
//	service_account: glad@project.iam.gserviceaccount.com
//	key_file: gee-service.json
//	project: my-ee-project
//	storage: drive
//	folder: GLAD
//	temp_download: /tmp/glad
//	final_path: /data/alerts
//	final_name: glad_alerts_jambi
//	aoi: aoi/jambi.shp
//	aoi_name: Jambi
//	year: 23
//	max_days: 3
//	retry:
//	  attempts: 10
//	  backoff: 1s
package config
