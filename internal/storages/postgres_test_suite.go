package storage

import (
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/suite"
)

// PostgresTestSuite connects to the database named by DB_DSN and applies
// the schema from MIGRATIONS_DIR once per suite. Embedding suites truncate
// the tables they touch in TearDownTest.
type PostgresTestSuite struct {
	suite.Suite

	db         *sqlx.DB
	migrations *migrate.Migrate
}

func (s *PostgresTestSuite) SetupSuite() {
	viper.AutomaticEnv()

	db, err := sqlx.Connect("pgx", viper.GetString("DB_DSN"))
	s.Require().NoError(err, "can't connect to database")
	s.db = db

	s.migrations, err = migrate.New(viper.GetString("MIGRATIONS_DIR"), viper.GetString("MIGRATIONS_DSN"))
	s.Require().NoError(err, "can't open migrations")

	s.Require().NoError(s.migrations.Up(), "can't migrate database")
}

func (s *PostgresTestSuite) TearDownSuite() {
	_ = s.migrations.Down()
	_ = s.db.Close()
}
