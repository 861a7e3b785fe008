package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/tubequery/internal/flagx"
	"github.com/dmitrijs2005/tubequery/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "3h" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. After unmarshalling, its fields are copied into the runtime Config
// struct which uses time.Duration.
type JsonConfig struct {
	EndpointAddrHTTP            string         `json:"endpoint_addr_http"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	DataRoot                    string         `json:"data_root"`
	StorageRoot                 string         `json:"storage_root"`
	Engine                      string         `json:"engine"`
	ChromaBaseURL               string         `json:"chroma_base_url"`
	AIBaseURL                   string         `json:"ai_base_url"`
	AIKeyEnv                    string         `json:"ai_key_env"`
	EmbeddingModel              string         `json:"embedding_model"`
	ChatModel                   string         `json:"chat_model"`
	TopK                        int            `json:"top_k"`
	MinRelevance                float64        `json:"min_relevance"`
	SummaryWindow               int            `json:"summary_window"`
	CORSOrigin                  string         `json:"cors_origin"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The lookup order for the JSON file path is the -c or -config command-line
// flags; if neither is set, no JSON file is loaded. If the file cannot be
// read or contains invalid JSON, the function panics.
//
// The caller is expected to merge these values with defaults and
// command-line flags as part of the full configuration process.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.AccessTokenValidityDuration = time.Duration(c.AccessTokenValidityDuration.Duration)
	config.DataRoot = c.DataRoot
	config.StorageRoot = c.StorageRoot
	config.Engine = c.Engine
	config.ChromaBaseURL = c.ChromaBaseURL
	config.AIBaseURL = c.AIBaseURL
	config.AIKeyEnv = c.AIKeyEnv
	config.EmbeddingModel = c.EmbeddingModel
	config.ChatModel = c.ChatModel
	config.TopK = c.TopK
	config.MinRelevance = c.MinRelevance
	config.SummaryWindow = c.SummaryWindow
	config.CORSOrigin = c.CORSOrigin
}
