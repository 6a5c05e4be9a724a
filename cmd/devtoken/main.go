// Command devtoken mints an access token for local testing.  Users and
// sign-in live in another service; this signs with the same JWT_SECRET.
//
//	devtoken -user 7 -role GUEST
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/iliyamo/rental-payments/internal/logger"
	"github.com/iliyamo/rental-payments/internal/model"
	"github.com/iliyamo/rental-payments/internal/utils"
)

func main() {
	_ = godotenv.Load()
	log := logger.New(logger.Config{Format: logger.TEXT, Output: os.Stderr})

	user := flag.Uint64("user", 0, "user id (sub claim)")
	role := flag.String("role", model.RoleGuest, "GUEST or ADMIN")
	ttl := flag.Int("ttl", 60, "lifetime in minutes")
	flag.Parse()

	if *role != model.RoleGuest && *role != model.RoleAdmin {
		log.Fatal("unknown role", "role", *role)
	}
	tok, err := utils.NewAccessToken(os.Getenv("JWT_SECRET"), *user, *role, *ttl)
	if err != nil {
		log.Fatal("cannot mint token", "error", err)
	}
	fmt.Println(tok.Token)
}
