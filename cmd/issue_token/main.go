package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/truequecito-backend/internal/app"
	"github.com/yungbote/truequecito-backend/internal/platform/logger"
	"github.com/yungbote/truequecito-backend/internal/services"
)

// issue_token mints a bearer token for local testing against a dev server.
func main() {
	var userID, role string
	var ttl time.Duration
	flag.StringVar(&userID, "user", "", "user id (uuid) to put in sub")
	flag.StringVar(&role, "role", "", "optional role claim, e.g. admin")
	flag.DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to ACCESS_TOKEN_TTL)")
	flag.Parse()

	id, err := uuid.Parse(strings.TrimSpace(userID))
	if err != nil || id == uuid.Nil {
		fmt.Println("a valid -user id is required")
		os.Exit(2)
	}
	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Printf("load config: %v\n", err)
		os.Exit(1)
	}
	if ttl <= 0 {
		ttl = cfg.AccessTokenTTL
	}

	identity := services.NewIdentityService(logger.Nop(), cfg.JWTSecretKey, cfg.JWTIssuer, ttl)
	token, err := identity.IssueToken(id, role)
	if err != nil {
		fmt.Printf("issue token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
