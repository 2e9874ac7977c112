// Package config defines the configuration of the rcuht-bench command.
//
// Values are layered by confloader: built-in defaults, an optional YAML
// file, RCUHT_* environment variables and command-line flags, in rising
// priority. The file layout mirrors the Config struct:
//
//	log:
//	  level: info
//	  format: json
//	output: table
//	bench:
//	  mode: rcu
//	  cores: [0, 1, 2, 3]
//	  objects: 1
//	  seconds: 10
//	  write_interval: 1ms
//	  buckets: 64
//	soak:
//	  duration: 1m
//	  readers: 4
//	metrics:
//	  address: ":9090"
package config
