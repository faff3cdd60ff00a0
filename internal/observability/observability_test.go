package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: "blog-test"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	_, span := StartSpan(context.Background(), "post_service", "create", attribute.Int("post.id", 1))
	span.AddAttributes(attribute.String("slug", "x"))
	span.End(errors.New("boom"))
}

func TestSpan_NilSafe(t *testing.T) {
	var s *Span
	s.AddAttributes(attribute.Bool("ok", true))
	s.End(nil)
	assert.Empty(t, s.TraceID())
}

type metricRow struct {
	ID   uint
	Name string
}

func TestDatabaseMetrics_RecordsQueries(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, NewDatabaseMetrics(db).Register())
	require.NoError(t, db.AutoMigrate(&metricRow{}))

	before := testutil.CollectAndCount(DatabaseQueryLatency)
	require.NoError(t, db.Create(&metricRow{Name: "a"}).Error)
	var rows []metricRow
	require.NoError(t, db.Find(&rows).Error)

	assert.Greater(t, testutil.CollectAndCount(DatabaseQueryLatency), before)
}
