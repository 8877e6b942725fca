/*
Package config loads blokfs settings.

Sources are applied in increasing order of precedence:

	┌─────────────────────────────────────────────┐
	│   Command line flags (cmd/blokfs)           │ ← Highest Priority
	├─────────────────────────────────────────────┤
	│   Environment variables (BLOKFS_*)          │
	├─────────────────────────────────────────────┤
	│   YAML file (--config)                      │
	├─────────────────────────────────────────────┤
	│   NewDefault                                │ ← Lowest Priority
	└─────────────────────────────────────────────┘

# Example

	global:
	  root_dir: /srv/data
	  mount_point: /mnt/data
	mount:
	  allow_other: true
	  options: [noatime]
	log:
	  level: DEBUG
	  diagnostic_file: blokfs.log
	  max_size_mb: 64
	metrics:
	  enabled: true
	  address: 127.0.0.1:9464

Validate checks struct tags with go-playground/validator and then rules that span fields,
such as rejecting a mount point inside the root directory.
*/
package config
