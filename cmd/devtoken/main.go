// Command devtoken mints a bearer token for local testing against the API.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"campusevents/internal/auth"
	"campusevents/internal/config"
	"campusevents/internal/model"
)

func main() {
	var (
		id   = flag.String("id", "", "principal id (required)")
		role = flag.String("role", "student", "student|faculty|hod|admin")
		dept = flag.String("dept", "", "department")
		sem  = flag.Int("semester", 0, "semester, students only")
		ttl  = flag.Duration("ttl", 12*time.Hour, "token lifetime")
	)
	flag.Parse()
	if *id == "" {
		log.Fatal("devtoken: -id is required")
	}

	cfg := config.Load()
	tok, err := auth.Issue(model.Principal{
		ID:         *id,
		Role:       model.Role(*role),
		Department: *dept,
		Semester:   *sem,
	}, cfg.JWTIssuer, cfg.JWTSigningKey, *ttl)
	if err != nil {
		log.Fatalf("devtoken: %v", err)
	}
	fmt.Println(tok)
}
