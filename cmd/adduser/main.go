package main

import (
	"bufio"   // Piped password input
	"context" // Repository calls
	"errors"  // Error classification
	"flag"    // Command line flags
	"fmt"     // Output
	"io"      // Injected streams
	"os"      // Process streams

	"driver_ledger/internal/auth"       // Registration rules and hashing
	"driver_ledger/internal/config"     // Database settings
	"driver_ledger/internal/db"         // Database connection
	"driver_ledger/internal/domain"     // Domain errors
	"driver_ledger/internal/repository" // User storage

	"github.com/sirupsen/logrus" // Structured logging
	"golang.org/x/term"          // Hidden password prompt
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(stderr)

	username := fs.String("user", "", "Username")
	passwordFlag := fs.String("password", "", "Password (prompted when omitted)")
	sqlitePath := fs.String("db", "", "SQLite database file (overrides DB_DRIVER/DATABASE_URL)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" {
		fmt.Fprintln(stdout, "Usage: adduser -user <username> [-password <password>] [-db <sqlite_path>]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flag: user")
	}

	password := *passwordFlag
	if password == "" {
		fmt.Fprint(stdout, "Password: ")
		var err error
		password, err = readPassword(stdin)
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		fmt.Fprintln(stdout)
	}

	cfg := config.LoadConfig()
	if *sqlitePath != "" {
		cfg.DBDriver = config.DriverSQLite
		cfg.DatabaseURL = *sqlitePath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logrus.SetOutput(stderr)

	gdb, err := db.Open(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	}()
	if err := db.Migrate(gdb); err != nil {
		return err
	}

	gate := auth.NewService(repository.NewUserRepository(gdb), nil, auth.Options{
		Secret:            cfg.JWTSecret,
		SessionLifetime:   cfg.SessionLifetime,
		PasswordMinLength: cfg.PasswordMinLength,
	})
	user, err := gate.Register(context.Background(), *username, password)
	if errors.Is(err, domain.ErrDuplicateUser) {
		return fmt.Errorf("user %s already exists", *username)
	} else if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Fprintf(stdout, "User %s created with ID %d\n", user.Username, user.ID)
	return nil
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	// Pipes and tests
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
