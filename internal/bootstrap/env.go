package bootstrap

import (
	"log"

	"github.com/joho/godotenv"
)

// LoadEnv reads .env (or the given files) into the process environment.
// Variables already set in the environment are left alone.
func LoadEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		log.Println("no .env file found, using system environment variables")
	}
}
