package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyUpgradeWebClient(t *testing.T) {
	t.Parallel()
	r := ClassifyUpgrade("/client/abc-123", nil, false)
	assert.Equal(t, RouteWebClient, r.Kind)
	assert.Equal(t, "abc-123", r.ClientID)
}

func TestClassifyUpgradeDevToolsRequiresClientIDQuery(t *testing.T) {
	t.Parallel()
	r := ClassifyUpgrade("/devtools/dt-1", map[string]string{"clientId": "abc-123"}, false)
	assert.Equal(t, RouteDevTools, r.Kind)
	assert.Equal(t, "abc-123", r.ClientID)
	assert.Equal(t, "dt-1", r.DevToolsID)

	r2 := ClassifyUpgrade("/devtools/dt-1", nil, false)
	assert.Equal(t, RouteUnknown, r2.Kind)
}

func TestClassifyUpgradeRNInspector(t *testing.T) {
	t.Parallel()
	r := ClassifyUpgrade("/inspector/device", map[string]string{"name": "x"}, false)
	assert.Equal(t, RouteRNInspector, r.Kind)
}

func TestClassifyUpgradeReactotronOnlyWhenEnabled(t *testing.T) {
	t.Parallel()
	assert.Equal(t, RouteReactotron, ClassifyUpgrade("/", nil, true).Kind)
	assert.Equal(t, RouteReactotron, ClassifyUpgrade("", nil, true).Kind)
	assert.Equal(t, RouteUnknown, ClassifyUpgrade("/", nil, false).Kind)
}

func TestClassifyUpgradeUnknownPath(t *testing.T) {
	t.Parallel()
	r := ClassifyUpgrade("/not-a-route", nil, true)
	assert.Equal(t, RouteUnknown, r.Kind)
}

func TestClassifyUpgradeRejectsExtraTrailingSegments(t *testing.T) {
	t.Parallel()
	assert.Equal(t, RouteUnknown, ClassifyUpgrade("/client/c1/garbage", nil, false).Kind)
	assert.Equal(t, RouteUnknown,
		ClassifyUpgrade("/devtools/dt-1/garbage", map[string]string{"clientId": "abc-123"}, false).Kind)
}

func TestClassifyUpgradeRejectsInspectorPrefixWithoutDevice(t *testing.T) {
	t.Parallel()
	assert.Equal(t, RouteUnknown, ClassifyUpgrade("/inspector/foo", nil, false).Kind)
	assert.Equal(t, RouteUnknown, ClassifyUpgrade("/inspector", nil, false).Kind)
}
