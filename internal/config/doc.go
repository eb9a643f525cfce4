/*
Package config provides configuration management for docvfs with multi-source
support.

Configuration precedence, lowest to highest:

  1. Compiled-in defaults (NewDefault)
  2. YAML configuration file (LoadFromFile)
  3. Environment variables (LoadFromEnv) — see spec.md §6.3 for the
     POSTGRES_* and ADMIN_PUBLIC_KEY variables the core requires, plus the
     DOCVFS_* ops-surface variables this package adds.

# Usage

	cfg := config.NewDefault()
	if err := cfg.LoadFromFile("/etc/docvfs/config.yaml"); err != nil {
		log.Fatal(err)
	}
	if err := cfg.LoadFromEnv(); err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

# Configuration file format

	database:
	  host: localhost
	  port: 5432
	  database: docvfs
	  user: docvfs
	  pool:
	    max_conns: 20
	    idle_timeout: 30s
	    connect_timeout: 2s

	signaling:
	  admin_public_key: ""

	monitoring:
	  logging:
	    level: INFO

	ops:
	  address: ":8080"
*/
package config
