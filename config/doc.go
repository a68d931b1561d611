// Package config loads configuration for gospawn entry points.
//
// It uses Viper to read a YAML file and godotenv to load a .env file, then
// overlays environment variables carrying the service prefix:
//
//	var cfg AppConfig
//	err := config.LoadConfig("gospawn", &cfg, config.WithConfigFile(path))
//
// GOSPAWN_PROCESS_TIMEOUT=5s sets process.timeout. Without an explicit file,
// config.yml is searched in the working directory, cmd/<service>, the user
// config directory and /etc/<service>.
package config
