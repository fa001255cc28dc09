package config

import "testing"

func FuzzLoad_DeadlineMillis(f *testing.F) {
	f.Add("500")
	f.Add("0")
	f.Add("-1")
	f.Add("not-a-number")
	f.Add("99999999999999999999")

	f.Fuzz(func(t *testing.T, deadline string) {
		clearFlagdEnv(t)
		t.Setenv("FLAGD_DEADLINE_MS", deadline)

		// Load must never panic regardless of the input; an error is an
		// acceptable outcome for malformed values.
		_, _ = Load()
	})
}

func FuzzLoad_ResolverAndCache(f *testing.F) {
	f.Add("RPC", "lru")
	f.Add("in-process", "disabled")
	f.Add("", "")
	f.Add("bogus", "bogus")

	f.Fuzz(func(t *testing.T, resolver, cache string) {
		clearFlagdEnv(t)
		t.Setenv("FLAGD_RESOLVER", resolver)
		t.Setenv("FLAGD_CACHE", cache)

		_, _ = Load()
	})
}
