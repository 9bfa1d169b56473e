package config

import "sync"

// Live holds the settings that change while the server runs: the parse URL
// set by the client or by a config file reload. It is session state and is
// never written back to disk.
type Live struct {
	mu       sync.RWMutex
	parseURL string
	subs     []func(parseURL string)
}

// NewLive returns a holder initialised with parseURL.
func NewLive(parseURL string) *Live {
	return &Live{parseURL: parseURL}
}

// ParseURL returns the current parse endpoint.
func (l *Live) ParseURL() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.parseURL
}

// SetParseURL validates and installs a new parse endpoint. Subscribers are
// called when the value changed.
func (l *Live) SetParseURL(u string) error {
	if err := ValidateURL(u); err != nil {
		return err
	}
	l.mu.Lock()
	if l.parseURL == u {
		l.mu.Unlock()
		return nil
	}
	l.parseURL = u
	subs := append([]func(string){}, l.subs...)
	l.mu.Unlock()

	for _, fn := range subs {
		fn(u)
	}
	return nil
}

// Subscribe registers fn to be called after every change.
func (l *Live) Subscribe(fn func(parseURL string)) {
	l.mu.Lock()
	l.subs = append(l.subs, fn)
	l.mu.Unlock()
}

// Reloader feeds reloaded configuration files into a Live holder. The parse
// URL is replaced only when the reloaded value differs from the previous
// load, so a URL set by the client survives edits to unrelated keys.
type Reloader struct {
	live     *Live
	override func(*Config)

	mu   sync.Mutex
	last string
}

// NewReloader returns a Reloader for live. initial is the configuration the
// server started with. override reapplies sources that outrank the file,
// such as command line flags, and may be nil.
func NewReloader(live *Live, initial Config, override func(*Config)) *Reloader {
	if override == nil {
		override = func(*Config) {}
	}
	return &Reloader{live: live, override: override, last: initial.Parse.URL}
}

// Apply installs the parse URL of c when it changed since the last load.
// It reports whether the live value was updated.
func (r *Reloader) Apply(c Config) (bool, error) {
	r.override(&c)

	r.mu.Lock()
	defer r.mu.Unlock()
	if c.Parse.URL == r.last {
		return false, nil
	}
	if err := r.live.SetParseURL(c.Parse.URL); err != nil {
		return false, err
	}
	r.last = c.Parse.URL
	return true, nil
}
