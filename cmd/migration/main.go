package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"gitlab.com/contactkeeper/contacts-service/internal/config"
)

// Usage example on the command line:
// > DBHOST=localhost:3306 DBUSER=dirk DBPWD=bullo92 JWT_SECRET=unused go run main.go -path=../../migrations up
func main() {
	pathPtr := flag.String("path", "./migrations", "the directory holding the migration files")
	flag.Parse()

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal(err)
	}

	m, err := migrate.New("file://"+*pathPtr, "mysql://"+cfg.DSN())
	if err != nil {
		log.Fatal(err)
	}
	defer m.Close()

	command := flag.Arg(0)
	switch command {
	case "", "up":
		err = m.Up()
	case "down":
		steps := 1
		if flag.NArg() > 1 {
			steps, err = strconv.Atoi(flag.Arg(1))
			if err != nil || steps < 1 {
				log.Fatalf("invalid steps argument %q", flag.Arg(1))
			}
		}
		err = m.Steps(-steps)
	case "version":
		v, dirty, verr := m.Version()
		if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
			log.Fatal(verr)
		}
		fmt.Printf("version: %d  dirty: %v\n", v, dirty)
		return
	default:
		log.Fatalf("unknown command %q, expected up, down, or version", command)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatal(err)
	}
	fmt.Println("migration finished")
}
