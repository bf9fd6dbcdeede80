package repo

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/oz-workspace/api/internal/modules/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.All()...))
	return db
}

type fixture struct {
	db        *gorm.DB
	workspace *model.Workspace
	owner     uuid.UUID
	room      *model.Room
	agent     *model.Agent
}

// newFixture seeds one workspace with an owner, one agent and one room linking it.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := newTestDB(t)

	f := &fixture{db: db, owner: uuid.New()}
	f.workspace = &model.Workspace{Name: "acme"}
	require.NoError(t, NewWorkspaceRepo(db).CreateWithOwner(ctx, f.workspace, f.owner))

	f.agent = &model.Agent{WorkspaceID: f.workspace.ID, UserID: f.owner, Name: "builder", Status: model.AgentStatusIdle}
	require.NoError(t, NewAgentRepo(db).Create(ctx, f.agent))

	wsID := f.workspace.ID
	f.room = &model.Room{WorkspaceID: &wsID, UserID: f.owner, Name: "general"}
	require.NoError(t, NewRoomRepo(db).CreateWithAgents(ctx, f.room, []uuid.UUID{f.agent.ID}))
	return f
}

func (f *fixture) addMember(t *testing.T, role string) uuid.UUID {
	t.Helper()
	userID := uuid.New()
	require.NoError(t, f.db.Create(&model.WorkspaceMember{
		WorkspaceID: f.workspace.ID,
		UserID:      userID,
		Role:        role,
	}).Error)
	return userID
}
