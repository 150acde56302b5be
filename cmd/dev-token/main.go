// Command dev-token prints a signed access token for local runs against the
// guest and host BFFs. Production tokens come from the user service.
//
//	dev-token --role HOST --user 6f1c... --ttl 2h
package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/iliyamo/hotel-booking/internal/config"
	"github.com/iliyamo/hotel-booking/internal/middleware"
	"github.com/iliyamo/hotel-booking/internal/utils"
)

func main() {
	config.LoadDotEnv()

	role := pflag.String("role", middleware.RoleGuest, "GUEST or HOST")
	user := pflag.String("user", "", "user UUID (random when empty)")
	ttl := pflag.Duration("ttl", time.Hour, "token lifetime")
	pflag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	r := strings.ToUpper(*role)
	if r != middleware.RoleGuest && r != middleware.RoleHost {
		log.Fatalf("invalid role %q: want GUEST or HOST", *role)
	}

	id := uuid.New()
	if *user != "" {
		parsed, err := uuid.Parse(*user)
		if err != nil {
			log.Fatalf("invalid --user: %v", err)
		}
		id = parsed
	}

	tok, err := utils.NewAccessToken(secret, id, r, *ttl)
	if err != nil {
		log.Fatalf("sign: %v", err)
	}
	fmt.Fprintf(os.Stderr, "user=%s role=%s expires=%s\n", id, r, tok.Exp.Format(time.RFC3339))
	fmt.Println(tok.Token)
}
