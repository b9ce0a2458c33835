package configuration

import (
	"reflect"
	"testing"
)

type localConfiguration struct {
	Version       Version      `yaml:"version"`
	Formatting    *localFormat `yaml:"formatting"`
	Notifications []localNotif `yaml:"notifications,omitempty"`
}

type localFormat struct {
	Formatter string `yaml:"formatter,omitempty"`
}

type localNotif struct {
	Name string `yaml:"name"`
}

var expectedConfig = localConfiguration{
	Version: "0.1",
	Formatting: &localFormat{
		Formatter: "json",
	},
	Notifications: []localNotif{
		{Name: "foo"},
		{Name: "bar"},
		{Name: "car"},
	},
}

const testConfig = `version: "0.1"
formatting:
  formatter: "text"
notifications:
  - name: "foo"
  - name: "bar"
  - name: "car"`

func newLocalParser() *Parser {
	return NewParser("registry", []VersionedParseInfo{
		{
			Version: "0.1",
			ParseAs: reflect.TypeOf(localConfiguration{}),
			ConversionFunc: func(c interface{}) (interface{}, error) {
				return c, nil
			},
		},
	})
}

func TestParserOverwriteInitializedPointer(t *testing.T) {
	t.Setenv("REGISTRY_FORMATTING_FORMATTER", "json")

	config := localConfiguration{}
	if err := newLocalParser().Parse([]byte(testConfig), &config); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reflect.DeepEqual(config, expectedConfig) {
		t.Fatalf("got %+v, want %+v", config, expectedConfig)
	}
}

const testConfig2 = `version: "0.1"
formatting:
  formatter: "text"
notifications:
  - name: "val1"
  - name: "val2"
  - name: "car"`

func TestParserOverwriteSliceElements(t *testing.T) {
	t.Setenv("REGISTRY_FORMATTING_FORMATTER", "json")
	// Override only the first two notification values; the last is
	// left unchanged by the environment and must come from the YAML.
	t.Setenv("REGISTRY_NOTIFICATIONS_0_NAME", "foo")
	t.Setenv("REGISTRY_NOTIFICATIONS_1_NAME", "bar")

	config := localConfiguration{}
	if err := newLocalParser().Parse([]byte(testConfig2), &config); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reflect.DeepEqual(config, expectedConfig) {
		t.Fatalf("got %+v, want %+v", config, expectedConfig)
	}
}
