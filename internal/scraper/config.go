package scraper

import (
	"fmt"
	"time"
)

// Selectors are the CSS selectors bound to the Correos de Chile markup.
type Selectors struct {
	Commune   string `mapstructure:"commune"`
	Street    string `mapstructure:"street"`
	Number    string `mapstructure:"number"`
	BlurLabel string `mapstructure:"blur_label"`
	Submit    string `mapstructure:"submit"`
	Result    string `mapstructure:"result"`
}

// RetryPolicy bounds a retry or poll loop.
type RetryPolicy struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Interval    time.Duration `mapstructure:"interval"`
}

// Budget is the longest the loop can spend sleeping between attempts.
func (p RetryPolicy) Budget() time.Duration {
	return p.Interval * time.Duration(p.MaxAttempts)
}

// Settle holds the pauses that give the page's own scripts time to react
// between UI actions.
type Settle struct {
	AfterReady   time.Duration `mapstructure:"after_ready"`
	AfterFocus   time.Duration `mapstructure:"after_focus"`
	AfterType    time.Duration `mapstructure:"after_type"`
	AfterArrow   time.Duration `mapstructure:"after_arrow"`
	AfterConfirm time.Duration `mapstructure:"after_confirm"`
	AfterNumber  time.Duration `mapstructure:"after_number"`
	AfterBlur    time.Duration `mapstructure:"after_blur"`
	AfterSubmit  time.Duration `mapstructure:"after_submit"`
}

// Config controls the scrape pipeline.
type Config struct {
	URL                string        `mapstructure:"url"`
	Selectors          Selectors     `mapstructure:"selectors"`
	NavigationTimeout  time.Duration `mapstructure:"navigation_timeout"`
	ActionTimeout      time.Duration `mapstructure:"action_timeout"`
	ResultTimeout      time.Duration `mapstructure:"result_timeout"`
	DiagnosticsTimeout time.Duration `mapstructure:"diagnostics_timeout"`
	Autocomplete       RetryPolicy   `mapstructure:"autocomplete"`
	EnablePoll         RetryPolicy   `mapstructure:"enable_poll"`
	Settle             Settle        `mapstructure:"settle"`
	MaxConcurrent      int           `mapstructure:"max_concurrent"`
	RateLimitPerSecond float64       `mapstructure:"rate_limit_per_second"`
}

const portletPrefix = "#_cl_cch_codigopostal_portlet_CodigoPostalPortlet_INSTANCE_MloJQpiDsCw9_"

// DefaultConfig returns the settings that work against the live site.
func DefaultConfig() Config {
	return Config{
		URL: "https://www.correos.cl/codigo-postal",
		Selectors: Selectors{
			Commune:   "input#mini-search-form-text",
			Street:    "input#mini-search-form-text-direcciones",
			Number:    portletPrefix + "numero",
			BlurLabel: "label[for='mini-search-form-text']",
			Submit:    portletPrefix + "searchDirection",
			Result:    portletPrefix + "ddCodPostal",
		},
		NavigationTimeout:  30 * time.Second,
		ActionTimeout:      20 * time.Second,
		ResultTimeout:      15 * time.Second,
		DiagnosticsTimeout: 5 * time.Second,
		Autocomplete:       RetryPolicy{MaxAttempts: 2},
		EnablePoll:         RetryPolicy{MaxAttempts: 20, Interval: 500 * time.Millisecond},
		Settle: Settle{
			AfterReady:   time.Second,
			AfterFocus:   500 * time.Millisecond,
			AfterType:    1200 * time.Millisecond,
			AfterArrow:   300 * time.Millisecond,
			AfterConfirm: time.Second,
			AfterNumber:  500 * time.Millisecond,
			AfterBlur:    time.Second,
			AfterSubmit:  2 * time.Second,
		},
		MaxConcurrent: 2,
	}
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("scraper.url is required")
	}
	s := c.Selectors
	for name, sel := range map[string]string{
		"commune":    s.Commune,
		"street":     s.Street,
		"number":     s.Number,
		"blur_label": s.BlurLabel,
		"submit":     s.Submit,
		"result":     s.Result,
	} {
		if sel == "" {
			return fmt.Errorf("scraper.selectors.%s is required", name)
		}
	}
	if c.Autocomplete.MaxAttempts <= 0 {
		return fmt.Errorf("scraper.autocomplete.max_attempts must be > 0")
	}
	if c.EnablePoll.MaxAttempts <= 0 {
		return fmt.Errorf("scraper.enable_poll.max_attempts must be > 0")
	}
	if c.NavigationTimeout <= 0 || c.ActionTimeout <= 0 || c.ResultTimeout <= 0 {
		return fmt.Errorf("scraper timeouts must be > 0")
	}
	if c.MaxConcurrent < 0 {
		return fmt.Errorf("scraper.max_concurrent must be >= 0")
	}
	if c.RateLimitPerSecond < 0 {
		return fmt.Errorf("scraper.rate_limit_per_second must be >= 0")
	}
	return nil
}
