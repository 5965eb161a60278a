package pluginabi

import (
	"testing"

	"github.com/neo6systems/neo6/internal/neo6err"
)

func TestErrorKindToNeo6(t *testing.T) {
	cases := []struct {
		kind ErrorKind
		want neo6err.Kind
	}{
		{OK, neo6err.OK},
		{InvalidArgs, neo6err.InvalidArgs},
		{ProtocolError, neo6err.ProtocolError},
		{BackendUnavailable, neo6err.BackendUnavailable},
		{Timeout, neo6err.Timeout},
		{Internal, neo6err.Internal},
		{ErrorKind(999), neo6err.Internal},
	}
	for _, c := range cases {
		if got := c.kind.ToNeo6(); got != c.want {
			t.Errorf("ErrorKind(%d).ToNeo6() = %v, want %v", c.kind, got, c.want)
		}
	}
}
