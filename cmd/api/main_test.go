package main

import (
	"bytes"
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"VISO_Collective/internal/config"
	"VISO_Collective/internal/pkg"
	"VISO_Collective/internal/repository/airtable"
	"VISO_Collective/internal/repository/memory"
	"VISO_Collective/internal/repository/mysql"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCommand(t *testing.T) {
	t.Setenv("NEXTAUTH_SECRET", "cli-secret")

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"token", "--sub", "u1", "--name", "Ada"})
	require.NoError(t, cmd.Execute())

	tokens, err := pkg.NewIdentityTokens("cli-secret")
	require.NoError(t, err)
	claims, err := tokens.Parse(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "Ada", claims.Name)
}

func TestTokenCommand_RequiresSubject(t *testing.T) {
	t.Setenv("NEXTAUTH_SECRET", "cli-secret")
	cmd := newRootCommand()
	cmd.SetArgs([]string{"token"})
	assert.Error(t, cmd.Execute())
}

func TestMigrateCommand_RejectsAirtable(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"migrate"})
	assert.ErrorContains(t, cmd.Execute(), "no schema")
}

func TestOpenStore(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Driver: config.DriverMemory}}
	st, db, err := openStore(cfg)
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, st)
	assert.Nil(t, db)

	cfg = &config.Config{Store: config.StoreConfig{Driver: config.DriverSQLite}, DB: config.DBConfig{DSN: ":memory:"}}
	st, db, err = openStore(cfg)
	require.NoError(t, err)
	assert.IsType(t, &mysql.RecordRepository{}, st)
	assert.NotNil(t, db)

	_, _, err = openStore(&config.Config{Store: config.StoreConfig{Driver: "mongo"}})
	assert.Error(t, err)
}

func TestOpenStore_AirtableHasNoClientTimeout(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{
		Driver:   config.DriverAirtable,
		Airtable: config.AirtableConfig{APIKey: "key", BaseID: "app"},
	}}
	st, db, err := openStore(cfg)
	require.NoError(t, err)
	assert.Nil(t, db)

	client, ok := st.(*airtable.Client)
	require.True(t, ok)
	// 只由请求 context 取消
	assert.Zero(t, client.HTTPClient().Timeout)
}

func TestRunInBackground_WaitsForExit(t *testing.T) {
	var (
		started  = make(chan struct{})
		finished atomic.Bool
	)
	wait := runInBackground(context.Background(), func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
	})

	<-started
	assert.False(t, finished.Load())
	wait()
	assert.True(t, finished.Load())
}

func TestRunInBackground_ParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	wait := runInBackground(parent, func(ctx context.Context) {
		<-ctx.Done()
		close(done)
	})

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("background task did not stop on parent cancel")
	}
	wait()
}
