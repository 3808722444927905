// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "transformer-monitoring")

	// Vision analysis service. The analysis timeout is deliberately long
	// since the upstream runs model inference.
	viper.SetDefault("vision.baseurl", "http://localhost:8000")
	viper.SetDefault("vision.timeout", 300*time.Second)
	viper.SetDefault("vision.healthtimeout", 5*time.Second)
	viper.SetDefault("vision.infotimeout", 10*time.Second)
	viper.SetDefault("vision.maxretries", 3)
	viper.SetDefault("vision.retrydelay", 1*time.Second)
	viper.SetDefault("vision.maxconcurrent", 5)
	viper.SetDefault("vision.sensitivity", 50)
	viper.SetDefault("vision.device", -1)
	viper.SetDefault("vision.inputsize", 640)
	viper.SetDefault("vision.halfprecision", false)

	viper.SetDefault("storage.publicbaseurl", "")
	viper.SetDefault("storage.urlcachettl", 15*time.Minute)

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "thermal.db")
	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "thermal")
	viper.SetDefault("output.mysql.password", "")
	viper.SetDefault("output.mysql.database", "thermal")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.port", "8080")
	viper.SetDefault("webserver.logpath", "logs/api.log")
}
