// Package config loads the salesd configuration.
//
// Settings come from three layers, later ones winning: built-in defaults, an
// optional YAML file and REACTFLOW_* environment variables.
//
//	server:
//	  addr: ":8080"
//	  read_timeout: 10s
//	store:
//	  backend: redis
//	  redis:
//	    addr: "localhost:6379"
//	    prefix: reactflow
//	report:
//	  enabled: true
//	  schedule: "@every 1m"
//	log:
//	  level: info
//	  format: json
//	metrics:
//	  enabled: true
//
// Supported environment overrides: REACTFLOW_SERVER_ADDR,
// REACTFLOW_STORE_BACKEND, REACTFLOW_REDIS_ADDR, REACTFLOW_REDIS_PASSWORD,
// REACTFLOW_REDIS_DB, REACTFLOW_REPORT_ENABLED, REACTFLOW_REPORT_SCHEDULE,
// REACTFLOW_LOG_LEVEL, REACTFLOW_LOG_FORMAT and REACTFLOW_METRICS_ENABLED.
package config
