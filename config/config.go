// Copyright 2026 mangarec Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/go-viper/mapstructure/v2"
	"github.com/juju/errors"
	"github.com/mangarec/mangarec/storage"
	"github.com/spf13/viper"
)

const (
	WeightPolicyScoring  = "scoring"
	WeightPolicyTraining = "training"
)

// Config is the configuration for mangarec.
type Config struct {
	Database  DatabaseConfig     `mapstructure:"database"`
	Blob      BlobConfig         `mapstructure:"blob"`
	Train     TrainConfig        `mapstructure:"train"`
	Recommend RecommendConfig    `mapstructure:"recommend"`
	Weights   map[string]float32 `mapstructure:"weights" validate:"dive,keys,oneof=score chapters recency,endkeys,gt=0"`
	Tune      TuneConfig         `mapstructure:"tune"`
}

// DatabaseConfig is the configuration for the catalog store and the meta store.
type DatabaseConfig struct {
	CatalogStore string `mapstructure:"catalog_store" validate:"required,catalog_store"`
	MetaStore    string `mapstructure:"meta_store" validate:"required,startswith=sqlite://"`
	TablePrefix  string `mapstructure:"table_prefix"`

	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

// BlobConfig is the configuration for the model artifact store.
type BlobConfig struct {
	Type  string          `mapstructure:"type" validate:"oneof=posix s3 gcs azure"`
	Dir   string          `mapstructure:"dir" validate:"required_if=Type posix"`
	S3    S3Config        `mapstructure:"s3"`
	GCS   GCSConfig       `mapstructure:"gcs"`
	Azure AzureBlobConfig `mapstructure:"azure"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

type GCSConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

type AzureBlobConfig struct {
	ConnectionString string `mapstructure:"connection_string"`
	AccountName      string `mapstructure:"account_name"`
	AccountKey       string `mapstructure:"account_key"`
	Endpoint         string `mapstructure:"endpoint"`
	Container        string `mapstructure:"container"`
	Prefix           string `mapstructure:"prefix"`
}

// TrainConfig is the configuration for the random forest and its training set.
type TrainConfig struct {
	NumTrees        int     `mapstructure:"num_trees" validate:"gt=0"`
	MaxDepth        int     `mapstructure:"max_depth" validate:"gte=0"`
	MinSamplesLeaf  int     `mapstructure:"min_samples_leaf" validate:"gte=1"`
	MinSamplesSplit int     `mapstructure:"min_samples_split" validate:"gte=2"`
	MaxFeatures     float64 `mapstructure:"max_features" validate:"gte=0,lte=1"`
	RandomState     int64   `mapstructure:"random_state"`
	Jobs            int     `mapstructure:"jobs" validate:"gte=1"`
	MinPositive     int     `mapstructure:"min_positive" validate:"gte=1"`
	MinNegative     int     `mapstructure:"min_negative" validate:"gte=1"`
	Normalization   string  `mapstructure:"normalization" validate:"oneof=minmax zscore"`
	Imputation      string  `mapstructure:"imputation" validate:"oneof=mean zero"`
	KeepHistory     int     `mapstructure:"keep_history" validate:"gte=0"`
}

// RecommendConfig is the configuration for ranking.
type RecommendConfig struct {
	TopK         int      `mapstructure:"top_k" validate:"gt=0"`
	BannedGenres []string `mapstructure:"banned_genres"`
	WeightPolicy string   `mapstructure:"weight_policy" validate:"oneof=scoring training"`
	Filter       string   `mapstructure:"filter"`
}

// TuneConfig is the configuration for hyper-parameters search.
type TuneConfig struct {
	Trials int `mapstructure:"trials" validate:"gt=0"`
}

func GetDefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			CatalogStore: "sqlite://catalog.db",
			MetaStore:    "sqlite://meta.db",
		},
		Blob: BlobConfig{
			Type: "posix",
			Dir:  "models",
		},
		Train: TrainConfig{
			NumTrees:        100,
			MaxDepth:        0,
			MinSamplesLeaf:  1,
			MinSamplesSplit: 2,
			MaxFeatures:     0,
			RandomState:     42,
			Jobs:            1,
			MinPositive:     60,
			MinNegative:     60,
			Normalization:   "minmax",
			Imputation:      "mean",
			KeepHistory:     1,
		},
		Recommend: RecommendConfig{
			TopK:         5,
			BannedGenres: []string{"Avant Garde", "Boys Love", "Hentai"},
			WeightPolicy: WeightPolicyScoring,
		},
		Weights: map[string]float32{
			"score":    1,
			"chapters": 1,
			"recency":  1,
		},
		Tune: TuneConfig{
			Trials: 20,
		},
	}
}

func setDefault(v *viper.Viper) {
	defaultConfig := GetDefaultConfig()
	// [database]
	v.SetDefault("database.catalog_store", defaultConfig.Database.CatalogStore)
	v.SetDefault("database.meta_store", defaultConfig.Database.MetaStore)
	// [blob]
	v.SetDefault("blob.type", defaultConfig.Blob.Type)
	v.SetDefault("blob.dir", defaultConfig.Blob.Dir)
	// [train]
	v.SetDefault("train.num_trees", defaultConfig.Train.NumTrees)
	v.SetDefault("train.max_depth", defaultConfig.Train.MaxDepth)
	v.SetDefault("train.min_samples_leaf", defaultConfig.Train.MinSamplesLeaf)
	v.SetDefault("train.min_samples_split", defaultConfig.Train.MinSamplesSplit)
	v.SetDefault("train.max_features", defaultConfig.Train.MaxFeatures)
	v.SetDefault("train.random_state", defaultConfig.Train.RandomState)
	v.SetDefault("train.jobs", defaultConfig.Train.Jobs)
	v.SetDefault("train.min_positive", defaultConfig.Train.MinPositive)
	v.SetDefault("train.min_negative", defaultConfig.Train.MinNegative)
	v.SetDefault("train.normalization", defaultConfig.Train.Normalization)
	v.SetDefault("train.imputation", defaultConfig.Train.Imputation)
	v.SetDefault("train.keep_history", defaultConfig.Train.KeepHistory)
	// [recommend]
	v.SetDefault("recommend.top_k", defaultConfig.Recommend.TopK)
	v.SetDefault("recommend.banned_genres", defaultConfig.Recommend.BannedGenres)
	v.SetDefault("recommend.weight_policy", defaultConfig.Recommend.WeightPolicy)
	// [weights]
	for name, weight := range defaultConfig.Weights {
		v.SetDefault("weights."+name, weight)
	}
	// [tune]
	v.SetDefault("tune.trials", defaultConfig.Tune.Trials)
}

type configBinding struct {
	key string
	env string
}

// LoadConfig loads configuration from toml file. Environment variables take precedence
// over the file, and the file over defaults. An empty path loads defaults only.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefault(v)

	// bind environment bindings
	bindings := []configBinding{
		{"database.catalog_store", "MANGAREC_CATALOG_STORE"},
		{"database.meta_store", "MANGAREC_META_STORE"},
		{"database.table_prefix", "MANGAREC_TABLE_PREFIX"},
		{"blob.type", "MANGAREC_BLOB_TYPE"},
		{"blob.dir", "MANGAREC_BLOB_DIR"},
		{"blob.s3.endpoint", "S3_ENDPOINT"},
		{"blob.s3.access_key_id", "S3_ACCESS_KEY_ID"},
		{"blob.s3.secret_access_key", "S3_SECRET_ACCESS_KEY"},
		{"blob.gcs.credentials_file", "GCS_CREDENTIALS_FILE"},
		{"blob.azure.connection_string", "AZURE_STORAGE_CONNECTION_STRING"},
		{"train.jobs", "MANGAREC_TRAIN_JOBS"},
		{"train.random_state", "MANGAREC_RANDOM_STATE"},
		{"recommend.top_k", "MANGAREC_TOP_K"},
		{"recommend.banned_genres", "MANGAREC_BANNED_GENRES"},
	}
	for _, binding := range bindings {
		if err := v.BindEnv(binding.key, binding.env); err != nil {
			return nil, errors.Trace(err)
		}
	}

	// load config file
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Annotatef(err, "read config %s", path)
		}
	}

	// unmarshal config file
	var conf Config
	if err := v.Unmarshal(&conf, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, errors.Trace(err)
	}
	for i := range conf.Recommend.BannedGenres {
		conf.Recommend.BannedGenres[i] = strings.TrimSpace(conf.Recommend.BannedGenres[i])
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}

func isCatalogStore(fl validator.FieldLevel) bool {
	for _, prefix := range storage.Prefixes() {
		if strings.HasPrefix(fl.Field().String(), prefix) {
			return true
		}
	}
	return false
}

func (config *Config) Validate() error {
	validate := validator.New()
	if err := validate.RegisterValidation("catalog_store", isCatalogStore); err != nil {
		return errors.Trace(err)
	}

	// register translations
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return errors.Trace(err)
	}
	if err := validate.RegisterTranslation("catalog_store", trans, func(ut ut.Translator) error {
		return ut.Add("catalog_store", "{0} must start with sqlite://, mysql://, postgres://, postgresql://, mongodb:// or mongodb+srv://", true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T("catalog_store", fe.Field())
		return t
	}); err != nil {
		return errors.Trace(err)
	}

	err := validate.Struct(config)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			return errors.NotValidf("%s", validationErrors[0].Translate(trans))
		}
		return errors.Trace(err)
	}
	return nil
}
