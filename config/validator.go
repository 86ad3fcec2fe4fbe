package config

import (
	"net/url"

	"wxcipher/internal/cipher"
	wxerr "wxcipher/internal/errors"
	"wxcipher/util"
)

// ValidateServer checks the fields the serve command depends on.
func (c *Config) ValidateServer() error {
	if _, _, err := util.SplitAddr(c.ListenAddress); err != nil {
		return &wxerr.ConfigError{
			Field:   "listen",
			Value:   c.ListenAddress,
			Message: "not a host:port address",
			Hint:    "use e.g. 127.0.0.1:65432 or :65432",
		}
	}
	if err := c.validateCommon(); err != nil {
		return err
	}
	if c.MaxConnections < 0 {
		return &wxerr.ConfigError{Field: "max-conns", Value: c.MaxConnections, Message: "must not be negative"}
	}
	if c.GracePeriod < 0 {
		return &wxerr.ConfigError{Field: "grace", Value: c.GracePeriod, Message: "must not be negative"}
	}
	if c.MetricsAddress != "" {
		if _, _, err := util.SplitAddr(c.MetricsAddress); err != nil {
			return &wxerr.ConfigError{Field: "metrics", Value: c.MetricsAddress, Message: "not a host:port address"}
		}
	}
	if c.APIKey != "" {
		u, err := url.Parse(c.ProviderURL)
		if err != nil || u.Host == "" {
			return &wxerr.ConfigError{Field: "provider-url", Value: c.ProviderURL, Message: "not an absolute URL"}
		}
	} else if len(c.Records) == 0 {
		return &wxerr.ConfigError{
			Field:   "api-key",
			Message: "no record source configured",
			Hint:    "set WXC_API_KEY, or add a [Provider.Records] table to the config file",
		}
	}
	if c.UserDB == "" && len(c.Users) == 0 {
		return &wxerr.ConfigError{
			Field:   "userdb",
			Message: "no credential store configured",
			Hint:    "create one with `wxcipher user add --userdb users.db <name>`",
		}
	}
	p := cipher.Params{Shift: c.DefaultShift, Key: c.DefaultKey}
	if err := (cipher.Spec{Variant: cipher.Vigenere, Params: p}).Validate(); err != nil {
		return &wxerr.ConfigError{Field: "default-key", Value: c.DefaultKey, Message: err.Error()}
	}
	return nil
}

// ValidateClient checks the fields the connect command depends on.
func (c *Config) ValidateClient() error {
	if c.Host == "" {
		return &wxerr.ConfigError{Field: "host", Message: "is required", Hint: "wxcipher connect <host> <port>"}
	}
	if c.Port < 1 || c.Port > 65535 {
		return &wxerr.ConfigError{Field: "port", Value: c.Port, Message: "out of range 1-65535"}
	}
	if err := c.validateCommon(); err != nil {
		return err
	}
	if c.Username == "" {
		return &wxerr.ConfigError{Field: "user", Message: "is required", Hint: "pass --user or set WXC_USER"}
	}
	if _, err := cipher.ParseSelection(c.Cipher, cipher.Params{Shift: c.DefaultShift, Key: c.DefaultKey}); err != nil {
		return &wxerr.ConfigError{Field: "cipher", Value: c.Cipher, Message: err.Error(), Hint: cipherHint()}
	}
	if c.DialAttempts < 1 {
		return &wxerr.ConfigError{Field: "attempts", Value: c.DialAttempts, Message: "must be at least 1"}
	}
	if c.TunnelEnabled {
		if c.TunnelHost == "" {
			return &wxerr.ConfigError{Field: "tunnel", Value: c.TunnelSpec, Message: "tunnel host is required"}
		}
		if c.Network == NetworkWS {
			return &wxerr.ConfigError{
				Field:   "network",
				Value:   c.Network,
				Message: "WebSocket transport is not supported through SSH tunnels",
				Hint:    "use --network tcp with -T",
			}
		}
	}
	return nil
}

func (c *Config) validateCommon() error {
	if c.Network != NetworkTCP && c.Network != NetworkWS {
		return &wxerr.ConfigError{Field: "network", Value: c.Network, Message: "must be tcp or ws"}
	}
	if c.MaxFrameSize < 64 {
		return &wxerr.ConfigError{Field: "max-frame", Value: c.MaxFrameSize, Message: "must be at least 64 bytes"}
	}
	return nil
}

func cipherHint() string {
	h := "one of"
	for _, v := range cipher.Variants() {
		h += " " + string(v)
	}
	return h
}
