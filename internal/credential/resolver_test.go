// SPDX-License-Identifier: MPL-2.0

package credential

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/charmbracelet/log"
)

type countingSource struct {
	values map[string]string
	calls  atomic.Int32
	err    error
}

func (s *countingSource) Name() string { return "counting" }

func (s *countingSource) Lookup(_ context.Context, key string) (string, bool, error) {
	s.calls.Add(1)
	if s.err != nil {
		return "", false, s.err
	}
	v, ok := s.values[key]
	return v, ok, nil
}

func quietLogger() *log.Logger { return log.New(io.Discard) }

func envFrom(m map[string]string) *EnvSource {
	return NewEnvSourceFunc(func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	})
}

func TestEnvName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"signingKey":       "SIGNING_KEY",
		"sonatypeApiKey":   "SONATYPE_API_KEY",
		"sonatypeUsername": "SONATYPE_USERNAME",
		"streemAccessKey":  "STREEM_ACCESS_KEY",
	}
	for in, want := range tests {
		if got := EnvName(in); got != want {
			t.Errorf("EnvName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolve_PropertyBeforeEnv(t *testing.T) {
	t.Parallel()

	r := NewResolver([]Source{
		NewPropertySource("test", map[string]string{"signingKey": "from-property"}),
		envFrom(map[string]string{"SIGNING_KEY": "from-env"}),
	}, WithLogger(quietLogger()))

	v, ok := r.Resolve(context.Background(), "signingKey")
	if !ok || v != "from-property" {
		t.Fatalf("Resolve() = (%q, %v), want from-property", v, ok)
	}
}

func TestResolve_FallsBackToEnv(t *testing.T) {
	t.Parallel()

	r := NewResolver([]Source{
		NewPropertySource("test", nil),
		envFrom(map[string]string{"SIGNING_KEY": "from-env"}),
	}, WithLogger(quietLogger()))

	v, ok := r.Resolve(context.Background(), "signingKey")
	if !ok || v != "from-env" {
		t.Fatalf("Resolve() = (%q, %v), want from-env", v, ok)
	}
}

func TestResolve_AbsentIsNotAnError(t *testing.T) {
	t.Parallel()

	failing := &countingSource{err: errors.New("boom")}
	r := NewResolver([]Source{failing, envFrom(nil)}, WithLogger(quietLogger()))

	if v, ok := r.Resolve(context.Background(), "signingKey"); ok || v != "" {
		t.Fatalf("Resolve() = (%q, %v), want absent", v, ok)
	}
}

func TestResolve_Cached(t *testing.T) {
	t.Parallel()

	src := &countingSource{values: map[string]string{"sonatypeUsername": "bot"}}
	r := NewResolver([]Source{src}, WithLogger(quietLogger()))

	first, _ := r.Resolve(context.Background(), "sonatypeUsername")
	second, _ := r.Resolve(context.Background(), "sonatypeUsername")
	_, _ = r.Resolve(context.Background(), "missing")
	_, _ = r.Resolve(context.Background(), "missing")

	if first != second {
		t.Errorf("Resolve() not idempotent: %q vs %q", first, second)
	}
	if got := src.calls.Load(); got != 2 {
		t.Errorf("source queried %d times, want 2 (one per name)", got)
	}
}

func TestResolveChain_FirstSuccessWins(t *testing.T) {
	t.Parallel()

	r := NewResolver([]Source{
		NewPropertySource("test", map[string]string{
			"streemAccessKey": "AKIA-prop",
			"streemSecretKey": "secret-prop",
		}),
	}, WithLogger(quietLogger()))

	var ambientCalls atomic.Int32
	ambient := NewAmbientProvider(aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		ambientCalls.Add(1)
		return aws.Credentials{AccessKeyID: "AKIA-ambient", SecretAccessKey: "s"}, nil
	}))

	creds, ok := r.ResolveChain(context.Background(), Chain{
		Name:  "streem",
		Steps: []Step{r.PairStep("streemAccessKey", "streemSecretKey"), ambient.Step()},
	})
	if !ok {
		t.Fatal("expected credentials")
	}
	if creds.Identity != "AKIA-prop" || creds.Secret != "secret-prop" {
		t.Errorf("unexpected creds %v", creds)
	}
	if ambientCalls.Load() != 0 {
		t.Error("ambient chain must not be queried when an earlier step succeeds")
	}
}

func TestResolveChain_AmbientSessionToken(t *testing.T) {
	t.Parallel()

	r := NewResolver(nil, WithLogger(quietLogger()))

	var ambientCalls atomic.Int32
	ambient := NewAmbientProvider(aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		ambientCalls.Add(1)
		return aws.Credentials{AccessKeyID: "ASIA", SecretAccessKey: "s", SessionToken: "tok", Source: "fake"}, nil
	}))
	chain := Chain{Name: "streem", Steps: []Step{r.PairStep("streemAccessKey", "streemSecretKey"), ambient.Step()}}

	first, ok := r.ResolveChain(context.Background(), chain)
	if !ok {
		t.Fatal("expected ambient credentials")
	}
	second, _ := r.ResolveChain(context.Background(), chain)
	// A different chain sharing the same ambient lookup must not requery it.
	_, _ = r.ResolveChain(context.Background(), Chain{Name: "other", Steps: []Step{ambient.Step()}})

	if !first.HasSessionToken() || first.SessionToken != "tok" {
		t.Errorf("session token not attached: %v", first)
	}
	if first != second {
		t.Errorf("ResolveChain() not idempotent: %v vs %v", first, second)
	}
	if got := ambientCalls.Load(); got != 1 {
		t.Errorf("ambient provider queried %d times, want 1", got)
	}
}

func TestResolveChain_AmbientFailureIsAbsent(t *testing.T) {
	t.Parallel()

	r := NewResolver(nil, WithLogger(quietLogger()))
	ambient := NewAmbientProvider(aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return aws.Credentials{}, errors.New("no EC2 IMDS role found")
	}))

	if _, ok := r.ResolveChain(context.Background(), Chain{Name: "streem", Steps: []Step{ambient.Step()}}); ok {
		t.Fatal("expected absent credentials")
	}
}

func TestResolveChain_SigningHasNoAmbientFallback(t *testing.T) {
	t.Parallel()

	r := NewResolver([]Source{envFrom(nil)}, WithLogger(quietLogger()))
	if _, ok := r.ResolveChain(context.Background(), Chain{Name: "signing", Steps: []Step{r.ValueStep("signingKey")}}); ok {
		t.Fatal("signing key should be absent")
	}
}

func TestPairStep_IncompletePair(t *testing.T) {
	t.Parallel()

	r := NewResolver([]Source{
		NewPropertySource("test", map[string]string{"sonatypeUsername": "bot"}),
	}, WithLogger(quietLogger()))

	if _, ok := r.ResolveChain(context.Background(), Chain{Name: "sonatype", Steps: []Step{r.PairStep("sonatypeUsername", "sonatypeApiKey")}}); ok {
		t.Fatal("incomplete pair must not resolve")
	}
}

func TestLoadPropertiesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "gradle.properties")
	content := "# credentials\nsonatypeUsername=bot\nsonatypeApiKey = key123\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	src, err := LoadPropertiesFile(path)
	if err != nil {
		t.Fatalf("LoadPropertiesFile() error: %v", err)
	}
	v, ok, _ := src.Lookup(context.Background(), "sonatypeApiKey")
	if !ok || v != "key123" {
		t.Errorf("Lookup() = (%q, %v), want key123", v, ok)
	}

	missing, err := LoadPropertiesFile(filepath.Join(dir, "absent.properties"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if _, ok, _ := missing.Lookup(context.Background(), "sonatypeApiKey"); ok {
		t.Error("missing file should yield no values")
	}
}

func TestCredentialsStringRedacts(t *testing.T) {
	t.Parallel()

	c := Credentials{Identity: "bot", Secret: "hunter2", Source: "property"}
	if s := c.String(); s != "credentials{identity=bot, source=property}" {
		t.Errorf("String() = %q", s)
	}
}
