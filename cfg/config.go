package cfg

import (
	"flag"
	"io/ioutil"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// EnvPrefix prefixes environment variables that override options. The option with cli name "api-listen" is read
// from SENTINEL_API_LISTEN.
const EnvPrefix = "SENTINEL_"

type argInfo struct {
	argPtr interface{}
	set    bool
}

func registerTypes(fs *flag.FlagSet, moduleOptions interface{}, argPointers map[string]*argInfo) error {
	moduleOptionsType := reflect.TypeOf(moduleOptions).Elem()

	numFields := moduleOptionsType.NumField()

	moduleOptionsValue := reflect.ValueOf(moduleOptions).Elem()

	// register flags for the module specific options
	for i := 0; i < numFields; i++ {
		field := moduleOptionsType.Field(i)

		if field.PkgPath != "" {
			continue
		}

		fieldValue := moduleOptionsValue.Field(i)

		cliName, found := field.Tag.Lookup("cli")
		if !found {
			continue
		}

		cliDescription, found := field.Tag.Lookup("desc")
		if !found {
			cliDescription = ""
		}

		switch fieldValue.Interface().(type) {
		case string:
			strRef := fs.String(cliName, "", cliDescription)
			argPointers[cliName] = &argInfo{argPtr: strRef}
		case []string:
			strRef := fs.String(cliName, "", cliDescription)
			argPointers[cliName] = &argInfo{argPtr: strRef}
		case bool:
			boolRef := fs.Bool(cliName, false, cliDescription)
			argPointers[cliName] = &argInfo{argPtr: boolRef}
		case int:
			intRef := fs.Int(cliName, 0, cliDescription)
			argPointers[cliName] = &argInfo{argPtr: intRef}
		case uint64:
			uintRef := fs.Uint64(cliName, 0, cliDescription)
			argPointers[cliName] = &argInfo{argPtr: uintRef}
		default:
			return errors.Errorf("type %s not handled", field.Type)
		}
	}

	return nil
}

func checkForSet(fs *flag.FlagSet, argPointers map[string]*argInfo) {
	fs.Visit(func(f *flag.Flag) {
		if _, found := argPointers[f.Name]; found {
			argPointers[f.Name].set = true
		}
	})
}

func fillOptionsWithMap(options interface{}, argPointers map[string]*argInfo) {
	t := reflect.TypeOf(options).Elem()
	v := reflect.ValueOf(options).Elem()
	for i := 0; i < t.NumField(); i++ {
		ft := t.Field(i)
		cliName, found := ft.Tag.Lookup("cli")
		if !found {
			continue
		}

		fv := v.Field(i)

		if ai, found := argPointers[cliName]; found && ai.set {
			typeInterface := fv.Interface()

			switch typeInterface.(type) {
			case string:
				fv.SetString(*ai.argPtr.(*string))
			case []string:
				argsStr := *ai.argPtr.(*string)
				args := strings.Split(argsStr, ",")

				fv.Set(reflect.ValueOf(args))
			case bool:
				fv.SetBool(*ai.argPtr.(*bool))
			case int:
				fv.SetInt(int64(*ai.argPtr.(*int)))
			case uint64:
				fv.SetUint(*ai.argPtr.(*uint64))
			}
		}
	}
}

// EnvName returns the environment variable overriding the option with the given cli name.
func EnvName(cliName string) string {
	return EnvPrefix + strings.ToUpper(strings.Replace(cliName, "-", "_", -1))
}

func fillOptionsWithEnv(options interface{}) error {
	t := reflect.TypeOf(options).Elem()
	v := reflect.ValueOf(options).Elem()
	for i := 0; i < t.NumField(); i++ {
		ft := t.Field(i)
		cliName, found := ft.Tag.Lookup("cli")
		if !found || ft.PkgPath != "" {
			continue
		}

		value, found := os.LookupEnv(EnvName(cliName))
		if !found || value == "" {
			continue
		}

		fv := v.Field(i)
		switch fv.Interface().(type) {
		case string:
			fv.SetString(value)
		case []string:
			fv.Set(reflect.ValueOf(strings.Split(value, ",")))
		case bool:
			b, err := strconv.ParseBool(value)
			if err != nil {
				return errors.Wrapf(err, "invalid value for %s", EnvName(cliName))
			}
			fv.SetBool(b)
		case int:
			n, err := strconv.Atoi(value)
			if err != nil {
				return errors.Wrapf(err, "invalid value for %s", EnvName(cliName))
			}
			fv.SetInt(int64(n))
		case uint64:
			n, err := strconv.ParseUint(value, 10, 64)
			if err != nil {
				return errors.Wrapf(err, "invalid value for %s", EnvName(cliName))
			}
			fv.SetUint(n)
		}
	}
	return nil
}

// LoadFlags loads 2 sets of options from the command line: global options defined by the GlobalOptions struct
// and local options provided by the passed moduleOptions parameter.
func LoadFlags(moduleOptions interface{}, globalOptions *GlobalOptions) error {
	return LoadFlagSet(flag.CommandLine, os.Args[1:], moduleOptions, globalOptions)
}

// LoadFlagSet fills the options from, in increasing priority, their current values, the yaml file named by
// --config, the environment (including the file named by --env-file) and args.
func LoadFlagSet(fs *flag.FlagSet, args []string, moduleOptions interface{}, globalOptions *GlobalOptions) error {
	argPointers := make(map[string]*argInfo)

	if err := registerTypes(fs, moduleOptions, argPointers); err != nil {
		return err
	}
	if err := registerTypes(fs, globalOptions, argPointers); err != nil {
		return err
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	checkForSet(fs, argPointers)

	// special config key needed for loading config file
	// this loads everything from the config file
	if ap, found := argPointers["config"]; found && ap.set {
		configFile := ap.argPtr.(*string)

		configBytes, err := ioutil.ReadFile(*configFile)
		if err != nil {
			return err
		}

		err = yaml.Unmarshal(configBytes, globalOptions)
		if err != nil {
			return errors.Wrapf(err, "error parsing %s", *configFile)
		}

		err = yaml.Unmarshal(configBytes, moduleOptions)
		if err != nil {
			return errors.Wrapf(err, "error parsing %s", *configFile)
		}
	}

	// variables already in the environment win over the env file
	if ap, found := argPointers["env-file"]; found && ap.set {
		if err := godotenv.Load(*ap.argPtr.(*string)); err != nil {
			return errors.Wrap(err, "error loading env file")
		}
	} else if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return errors.Wrap(err, "error loading .env")
		}
	}

	if err := fillOptionsWithEnv(moduleOptions); err != nil {
		return err
	}
	if err := fillOptionsWithEnv(globalOptions); err != nil {
		return err
	}

	fillOptionsWithMap(moduleOptions, argPointers)
	fillOptionsWithMap(globalOptions, argPointers)

	return nil
}
