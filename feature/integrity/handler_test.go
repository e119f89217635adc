package integrity

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"mixer-report/core/database"
	"mixer-report/core/storage/mocks"
	"mixer-report/feature/mixer"

	"github.com/gofiber/fiber/v2"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testProfile = `
site: rba
shifts:
  - {label: A, start: "07:00:00"}
  - {label: B, start: "19:00:00"}
batch:
  table: prepared_sand
  prefix: exports/sand/
  date_column: date
  time_column: time
  group_key: Batch_reset
windows:
  table: consumption_booking
  prefix: exports/booking/
  start_column: start_time
  end_column: end_time
  component_column: component_id
output_columns: [shift, component_id, compactability]
output_rename: {compactability: Compactability}
sink:
  table: mixer_report
`

func setupTestApp(t *testing.T, client *mocks.Client) (*fiber.App, *gorm.DB) {
	t.Helper()
	profile, err := mixer.ParseProfile([]byte(testProfile))
	require.NoError(t, err)

	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)

	var feature *Feature
	if client != nil {
		feature = NewFeature(client, "mixer", zap.NewNop(), db, profile)
	} else {
		feature = NewFeature(nil, "mixer", zap.NewNop(), db, profile)
	}
	assert.Equal(t, "integrity", feature.Name())
	assert.True(t, feature.IsEnabled())

	app := fiber.New()
	require.NoError(t, feature.Load(app))
	return app, db
}

func decode(t *testing.T, app *fiber.App, target string) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", target, nil))
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestService_Targets(t *testing.T) {
	profile, err := mixer.ParseProfile([]byte(testProfile))
	require.NoError(t, err)
	svc := NewService(nil, "mixer", zap.NewNop(), nil, profile)

	targets := svc.Targets()
	assert.Equal(t, "prepared_sand", targets["batch"].Table)
	assert.Equal(t, []string{"date", "time", "Batch_reset"}, targets["batch"].Columns)
	assert.Equal(t, []string{"timestamp", "shift", "component_id", "Compactability"}, targets["sink"].Columns)
	assert.NotContains(t, targets, "dosing")

	assert.Equal(t, map[string]string{"batch": "exports/sand/", "windows": "exports/booking/"}, svc.Prefixes())
}

func TestHandleSchemaCheck(t *testing.T) {
	app, db := setupTestApp(t, nil)
	require.NoError(t, db.Exec("CREATE TABLE prepared_sand (date TEXT, time TEXT, Batch_reset TEXT)").Error)
	require.NoError(t, db.Exec("CREATE TABLE mixer_report (timestamp DATETIME, shift TEXT, component_id TEXT)").Error)

	status, body := decode(t, app, "/integrity/schema")
	assert.Equal(t, 200, status)
	assert.Equal(t, false, body["matched"])

	tables := body["tables"].(map[string]any)
	assert.Equal(t, "ok", tables["batch"].(map[string]any)["status"])
	assert.Equal(t, "missing", tables["windows"].(map[string]any)["status"])
	sink := tables["sink"].(map[string]any)
	assert.Equal(t, "error", sink["status"])
	assert.Equal(t, []any{"Compactability"}, sink["missing_columns"])
}

func TestHandleExportsCheck(t *testing.T) {
	client := new(mocks.Client)
	app, _ := setupTestApp(t, client)

	client.On("BucketExists", mock.Anything, "mixer").Return(true, nil)
	ch := make(chan minio.ObjectInfo)
	close(ch)
	client.On("ListObjects", mock.Anything, "mixer", mock.Anything).Return((<-chan minio.ObjectInfo)(ch))
	client.On("PutObject", mock.Anything, "mixer", mock.Anything, mock.Anything, int64(0), mock.Anything).
		Return(minio.UploadInfo{}, nil)

	status, body := decode(t, app, "/integrity/exports")
	assert.Equal(t, 200, status)
	assert.Equal(t, "checked", body["status"])
	assert.Equal(t, []any{"batch", "windows"}, body["missing"])
	client.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	status, body = decode(t, app, "/integrity/exports?fix=true")
	assert.Equal(t, 200, status)
	assert.Equal(t, "fixed", body["status"])
	client.AssertNumberOfCalls(t, "PutObject", 2)
}

func TestHandleExportsCheck_NoStorage(t *testing.T) {
	app, _ := setupTestApp(t, nil)

	status, body := decode(t, app, "/integrity/exports")
	assert.Equal(t, 500, status)
	assert.Equal(t, "storage is not configured", body["error"])
}

func TestHandleIntegrityCheck(t *testing.T) {
	app, _ := setupTestApp(t, nil)

	status, body := decode(t, app, "/integrity")
	assert.Equal(t, 200, status)
	assert.Contains(t, body, "schema")
	assert.NotContains(t, body, "exports")
}
