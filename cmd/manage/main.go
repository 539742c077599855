// Command manage runs one-off maintenance tasks against the blog database.
//
//	manage migrate
//	manage createsuperuser -username admin -password secret [-email a@b.c]
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"gorm.io/gorm"

	"github.com/cppla/inkblog/config"
	"github.com/cppla/inkblog/models"
	"github.com/cppla/inkblog/utils"
)

const usage = `usage: manage <command> [flags]

commands:
  migrate           create or update the blog tables
  createsuperuser   create a staff account (-username, -password, -email)
`

func main() {
	if err := run(os.Args[1:], os.Stdout, openDB); err != nil {
		log.Fatal(err)
	}
}

func openDB() (*gorm.DB, error) {
	return config.OpenDatabase(config.Load())
}

var errUsage = errors.New("invalid usage")

func run(args []string, out io.Writer, open func() (*gorm.DB, error)) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errUsage
	}

	switch args[0] {
	case "migrate":
		db, err := open()
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		if err := config.Migrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		fmt.Fprintln(out, "migrations applied")
		return nil

	case "createsuperuser":
		fs := flag.NewFlagSet("createsuperuser", flag.ContinueOnError)
		fs.SetOutput(out)
		username := fs.String("username", "", "login name")
		password := fs.String("password", "", "password, at least 8 characters")
		email := fs.String("email", "", "contact address")
		if err := fs.Parse(args[1:]); err != nil {
			return errUsage
		}

		db, err := open()
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		if err := config.Migrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		user, err := createSuperuser(db, *username, *password, *email)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "superuser %q created (id %d)\n", user.Username, user.ID)
		return nil

	default:
		fmt.Fprint(out, usage)
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

func createSuperuser(db *gorm.DB, username, password, email string) (models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return models.User{}, errors.New("username is required")
	}
	if len(password) < 8 {
		return models.User{}, errors.New("password must be at least 8 characters")
	}

	var count int64
	if err := db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return models.User{}, err
	}
	if count > 0 {
		return models.User{}, fmt.Errorf("username %q already exists", username)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	user := models.User{Username: username, Email: strings.TrimSpace(email), PasswordHash: hash, IsStaff: true}
	return user, db.Create(&user).Error
}
