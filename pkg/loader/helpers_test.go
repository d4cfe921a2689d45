package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redisdriver "github.com/sirilvk/exl-loader/pkg/drivers/redis"
	"github.com/sirilvk/exl-loader/pkg/exl"
	"github.com/stretchr/testify/require"
)

// buildDoc renders a document named name with one instrument per RIC.
func buildDoc(name string, rics ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<exl><name>%s</name><exlHeader><ccy>GBP</ccy></exlHeader><exlObjects>", name)
	for _, ric := range rics {
		symbol, _, _ := strings.Cut(ric, ".")
		fmt.Fprintf(&b, "<exlObject><it:RIC>%s</it:RIC><it:SYMBOL>%s</it:SYMBOL></exlObject>", ric, symbol)
	}
	b.WriteString("</exlObjects></exl>")
	return b.String()
}

// rics returns n distinct RICs prefixed with prefix.
func rics(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d.L", prefix, i)
	}
	return out
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// setupCache returns a redis-backed cache on a fresh miniredis.
func setupCache(t *testing.T) (*redisdriver.Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	cache, err := redisdriver.New(context.Background(), redisdriver.Config{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache, mr
}

var errInjected = errors.New("injected write failure")

// fakeCache records writes and fails on demand.
type fakeCache struct {
	mu sync.Mutex

	templates []string
	attempted []string
	written   []string

	failTemplate bool
	failRIC      string

	// onTemplate runs before each template write
	onTemplate func()
}

func (f *fakeCache) WriteTemplate(ctx context.Context, tpl exl.Template) error {
	if f.onTemplate != nil {
		f.onTemplate()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTemplate {
		return exl.ErrCacheUnavailable("EXLCache", errInjected)
	}
	f.templates = append(f.templates, tpl.Name)
	return nil
}

func (f *fakeCache) WriteInstrument(ctx context.Context, inst exl.Instrument) error {
	ric, _ := inst.KeyField(exl.FieldRIC)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempted = append(f.attempted, ric)
	if err := ctx.Err(); err != nil {
		return err
	}
	if ric == f.failRIC {
		return exl.ErrCacheUnavailable("RICCache", errInjected)
	}
	f.written = append(f.written, ric)
	return nil
}

func (f *fakeCache) snapshot() (templates, attempted, written []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.templates...),
		append([]string(nil), f.attempted...),
		append([]string(nil), f.written...)
}
