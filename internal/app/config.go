package app

import (
	"os"
	"strings"

	"github.com/jeremywohl/flatten"
	"github.com/metal-toolbox/netsync/internal/model"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// LoadConfiguration loads application configuration
//
// Reads in the cfgFile when available and overrides from environment variables.
func (a *App) LoadConfiguration(cfgFile string, requireToken bool) error {
	a.v.SetConfigType("yaml")
	a.v.SetEnvPrefix(model.AppName)
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	if cfgFile != "" {
		fh, err := os.Open(cfgFile)
		if err != nil {
			return errors.Wrap(model.ErrConfiguration, err.Error())
		}

		defer fh.Close()

		if err = a.v.ReadConfig(fh); err != nil {
			return errors.Wrap(model.ErrConfiguration, "ReadConfig error:"+err.Error())
		}
	}

	if err := a.envBindVars(); err != nil {
		return errors.Wrap(model.ErrConfiguration, "env var bind error:"+err.Error())
	}

	if err := a.v.Unmarshal(a.Config); err != nil {
		return errors.Wrap(model.ErrConfiguration, "Unmarshal error: "+err.Error())
	}

	return a.netboxOverrides(requireToken)
}

// envBindVars binds environment variables to the struct
// without a configuration file being unmarshalled,
// this is a workaround for a viper bug,
//
// This can be replaced by the solution in https://github.com/spf13/viper/pull/1429
// once that PR is merged.
func (a *App) envBindVars() error {
	envKeysMap := map[string]interface{}{}
	if err := mapstructure.Decode(a.Config, &envKeysMap); err != nil {
		return err
	}

	// Flatten nested conf map
	flat, err := flatten.Flatten(envKeysMap, "", flatten.DotStyle)
	if err != nil {
		return errors.Wrap(err, "Unable to flatten config")
	}

	for k, v := range flat {
		// struct values become the defaults config files and env vars override
		a.v.SetDefault(k, v)

		if err := a.v.BindEnv(k); err != nil {
			return errors.Wrap(model.ErrConfiguration, "env var bind error: "+err.Error())
		}
	}

	return nil
}

// netboxOverrides resolves the NetBox token, the variable named by token_env wins over token.
func (a *App) netboxOverrides(requireToken bool) error {
	opts := &a.Config.NetBox

	if opts.TokenEnv != "" {
		if token := os.Getenv(opts.TokenEnv); token != "" {
			opts.Token = token
		}
	}

	if !requireToken {
		return nil
	}

	if opts.Endpoint == "" {
		return errors.Wrap(model.ErrConfiguration, "netbox.endpoint not defined")
	}

	if opts.Token == "" {
		return errors.Wrap(
			model.ErrConfiguration,
			"netbox token not defined, set netbox.token or the "+opts.TokenEnv+" environment variable",
		)
	}

	return nil
}
