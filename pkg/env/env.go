package env

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Load loads environment variables from .env file
func Load(paths ...string) {
	if err := godotenv.Load(paths...); err != nil {
		logrus.Debugf("No .env file found")
	}
}

// RequiredStringVariable returns the value of an environment variable or panics if not set
func RequiredStringVariable(name string) string {
	value := os.Getenv(name)
	if value == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", name))
	}
	return value
}

// StringVariable returns the value of an environment variable or a default value
func StringVariable(name, defaultValue string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return defaultValue
}

// IntVariable returns the value of an environment variable as int or a default value.
// Panics if the variable is set to something that is not an integer.
func IntVariable(name string, defaultValue int) int {
	value := os.Getenv(name)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		panic(fmt.Sprintf("environment variable %s must be an integer, got: %s", name, value))
	}
	return intValue
}

// FloatVariable returns the value of an environment variable as float64 or a default value.
// Panics if the variable is set to something that is not a number.
func FloatVariable(name string, defaultValue float64) float64 {
	value := os.Getenv(name)
	if value == "" {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		panic(fmt.Sprintf("environment variable %s must be a number, got: %s", name, value))
	}
	return floatValue
}

// DurationVariable parses values like "30s" or "1m".
func DurationVariable(name string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(name)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		panic(fmt.Sprintf("environment variable %s must be a duration, got: %s", name, value))
	}
	return duration
}
