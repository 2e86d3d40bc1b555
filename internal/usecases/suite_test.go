package usecases

import (
	"context"
	"time"

	"github.com/Ignsass/chat-app/internal/models"
	storage "github.com/Ignsass/chat-app/internal/storages"
	"github.com/Shopify/sarama"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

// stubProducer accepts every update without a broker. The embedded nil
// interface covers the transactional methods nothing here calls.
type stubProducer struct {
	sarama.SyncProducer
}

func (stubProducer) SendMessage(*sarama.ProducerMessage) (int32, int64, error) {
	return 0, 0, nil
}

// recordingNotifier captures relayed events for assertions.
type recordingNotifier struct {
	messages  []*models.Message
	reactions []*models.Message
	patches   []models.UserPatch
	statuses  []models.UserPatch
	deleted   []string
}

func (n *recordingNotifier) RelayMessage(msg *models.Message)        { n.messages = append(n.messages, msg) }
func (n *recordingNotifier) RelayReaction(msg *models.Message)       { n.reactions = append(n.reactions, msg) }
func (n *recordingNotifier) UserUpdated(patch models.UserPatch)      { n.patches = append(n.patches, patch) }
func (n *recordingNotifier) UserDeleted(userID string)               { n.deleted = append(n.deleted, userID) }
func (n *recordingNotifier) UserStatusChanged(patch models.UserPatch) {
	n.statuses = append(n.statuses, patch)
}

type UsecaseTestSuite struct {
	suite.Suite
	db       *sqlx.DB
	m        *migrate.Migrate
	registry *storage.DefaultRegistry
	notify   *recordingNotifier
	log      *logrus.Logger
}

func (s *UsecaseTestSuite) SetupSuite() {
	var err error
	viper.AutomaticEnv()
	dbDsn := viper.GetString("DB_DSN")
	migrationsDsn := viper.GetString("MIGRATIONS_DSN")
	migrationsDir := viper.GetString("MIGRATIONS_DIR")

	s.db, err = sqlx.Connect("pgx", dbDsn)
	require.NoError(s.T(), err, "failed to connect to database")

	s.m, err = migrate.New(migrationsDir, migrationsDsn)
	require.NoError(s.T(), err, "failed to open migrations")

	err = s.m.Up()
	require.NoError(s.T(), err, "failed to migrate database")

	s.registry = storage.NewRegistry(s.db, stubProducer{}, &storage.UpdatesStoreConfig{UpdatesTopic: "test"})
	s.log = logrus.New()
	s.log.SetLevel(logrus.ErrorLevel)
}

func (s *UsecaseTestSuite) SetupTest() {
	s.notify = &recordingNotifier{}
}

func (s *UsecaseTestSuite) TearDownTest() {
	_, err := s.db.Exec("TRUNCATE reactions, messages, chat_members, chats, users")
	require.NoError(s.T(), err, "can't teardown test")
}

func (s *UsecaseTestSuite) TearDownSuite() {
	_ = s.m.Down()
	_ = s.db.Close()
}

// seedUser inserts an account directly, password "hunter22".
func (s *UsecaseTestSuite) seedUser(ctx context.Context, userId, username string) *models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(s.T(), err)

	user := &models.User{
		UserID:       userId,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
		ProfilePic:   "default.svg",
		AvatarColor:  "hsl(120, 60%, 70%)",
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(s.T(), s.registry.GetUsersStore().CreateUser(ctx, user))
	return user
}
