package config

import "os"

func IsDebug() bool {
	return os.Getenv("CHAINBOT_DEBUG") == "1"
}
