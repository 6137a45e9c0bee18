package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"memberzone/internal/auth"
	"memberzone/internal/config"
	"memberzone/internal/db"
	"memberzone/internal/model"
	"memberzone/internal/repository"
	"memberzone/internal/validation"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

func main() {
	username := flag.String("username", "admin", "admin username")
	email := flag.String("email", os.Getenv("ADMIN_EMAIL"), "admin email")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "admin password (prompted when empty)")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	if *password == "" {
		*password, err = promptPassword()
		if err != nil {
			logger.Fatal("read password", zap.Error(err))
		}
	}

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		logger.Fatal("connect to database", zap.Error(err))
	}
	if err := db.Migrate(gormDB, false); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	in := validation.SignupInput{Username: *username, Email: *email, Password: *password}
	hasher := auth.NewBcryptHasher(cfg.BcryptCost, 1)
	created, err := ensureAdmin(context.Background(), repository.NewUserRepository(gormDB), hasher, validation.New(), in)
	if err != nil {
		logger.Fatal("seed admin", zap.Error(err))
	}
	logger.Info("admin ready", zap.String("email", in.Email), zap.Bool("created", created))
}

// ensureAdmin creates an admin account for in, or promotes the single
// existing account registered under in.Email. It reports whether an
// account was created.
func ensureAdmin(
	ctx context.Context,
	repo repository.UserRepository,
	hasher auth.CredentialVerifier,
	v *validation.Validator,
	in validation.SignupInput,
) (bool, error) {
	if err := v.ValidateSignup(in); err != nil {
		return false, err
	}

	existing, err := repo.FindByEmail(ctx, in.Email)
	if err != nil {
		return false, err
	}
	switch len(existing) {
	case 0:
	case 1:
		return false, repo.UpdateRole(ctx, existing[0].ID, model.RoleAdmin)
	default:
		return false, fmt.Errorf("%d accounts share %s", len(existing), in.Email)
	}

	hashed, err := hasher.Hash(ctx, in.Password)
	if err != nil {
		return false, err
	}
	user := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hashed,
		Role:         model.RoleAdmin,
	}
	if err := repo.Create(ctx, user); err != nil {
		return false, err
	}
	return true, nil
}

func promptPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", errors.New("no password given")
		}
		return strings.TrimSpace(line), nil
	}

	fmt.Fprint(os.Stderr, "Admin password: ")
	pw, err := readPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}
