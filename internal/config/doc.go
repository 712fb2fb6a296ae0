// Package config holds the explicit configuration object passed to every
// component that needs settings.
//
// Values are layered, later layers winning: built-in defaults, the HuJSON
// configuration file (JSON with comments and trailing commas), then
// FORGE_* environment variables. Command line flags are applied on top by
// the cli package.
//
// Example configuration file:
//
//	{
//	    // Build host used by recipes with the "host" backend.
//	    "ssh": {
//	        "host": "build01.example.com",
//	        "user": "builder",
//	        "privateKey": "/home/me/.ssh/id_ed25519",
//	    },
//	    "lock": {"backend": "semaphore"},
//	}
package config
