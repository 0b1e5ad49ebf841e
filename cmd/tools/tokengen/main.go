// Command tokengen mints staff JWTs for exercising the API locally. The
// production deployment receives tokens from the retail identity service;
// this tool signs compatible ones with the shared secret.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

func main() {
	staffID := flag.String("staff", "staff-1", "subject claim for the token")
	roles := flag.String("roles", "", "comma separated role list, e.g. admin")
	ttl := flag.Duration("ttl", 8*time.Hour, "token lifetime")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}
	issuer := os.Getenv("JWT_ISSUER")
	if issuer == "" {
		issuer = "retail-identity"
	}

	now := time.Now()
	builder := jwt.NewBuilder().
		Subject(*staffID).
		Issuer(issuer).
		IssuedAt(now).
		Expiration(now.Add(*ttl))
	if trimmed := strings.TrimSpace(*roles); trimmed != "" {
		var list []string
		for _, role := range strings.Split(trimmed, ",") {
			if role = strings.TrimSpace(role); role != "" {
				list = append(list, role)
			}
		}
		builder = builder.Claim("roles", list)
	}

	tok, err := builder.Build()
	if err != nil {
		log.Fatalf("build token: %v", err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte(secret)))
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	fmt.Println(string(signed))
}
