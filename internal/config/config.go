package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds application configuration.
type Config struct {
	HTTPAddress string
	DataFile    string

	AIMLKey       string
	AIMLChatModel string
	AIMLTTSModel  string
	AIMLTTSVoice  string

	TTSProvider   string
	DeepgramKey   string
	DeepgramModel string

	SupabaseURL            string
	SupabaseServiceRoleKey string
	SupabaseBucket         string
}

// Load reads environment variables and returns Config with sane defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file loaded")
	}

	addr := os.Getenv("HTTP_ADDRESS")
	if addr == "" {
		addr = ":8080"
	}

	dataFile := os.Getenv("DATA_FILE")
	if dataFile == "" {
		dataFile = "data/violations.json"
	}

	aimlKey := os.Getenv("AIMLAPI_KEY")
	if aimlKey == "" {
		log.Warn().Msg("AIMLAPI_KEY not set - assistant chat and remote TTS will degrade")
	}
	chatModel := os.Getenv("AIML_CHAT_MODEL")
	if chatModel == "" {
		chatModel = "openai/gpt-5-chat-latest"
	}
	ttsModel := os.Getenv("AIML_TTS_MODEL")
	if ttsModel == "" {
		ttsModel = "elevenlabs/v3_alpha"
	}
	ttsVoice := os.Getenv("AIML_TTS_VOICE")
	if ttsVoice == "" {
		ttsVoice = "Alice"
	}

	provider := os.Getenv("TTS_PROVIDER")
	if provider == "" {
		provider = "aiml"
	}
	deepgramKey := os.Getenv("DEEPGRAM_API_KEY")
	if provider == "deepgram" && deepgramKey == "" {
		log.Warn().Msg("DEEPGRAM_API_KEY not set - TTS will fall back to local synthesis")
	}
	deepgramModel := os.Getenv("DEEPGRAM_TTS_MODEL")
	if deepgramModel == "" {
		deepgramModel = "aura-2-thalia-en"
	}

	supabaseURL := os.Getenv("SUPABASE_URL")
	supabaseKey := os.Getenv("SUPABASE_SERVICE_ROLE_KEY")
	if supabaseURL == "" || supabaseKey == "" {
		log.Warn().Msg("Supabase credentials not set - evidence uploads disabled")
	}
	bucket := os.Getenv("SUPABASE_BUCKET")
	if bucket == "" {
		bucket = "evidence"
	}

	log.Info().Str("http_address", addr).Str("data_file", dataFile).Str("tts_provider", provider).Msg("config loaded")
	return Config{
		HTTPAddress:            addr,
		DataFile:               dataFile,
		AIMLKey:                aimlKey,
		AIMLChatModel:          chatModel,
		AIMLTTSModel:           ttsModel,
		AIMLTTSVoice:           ttsVoice,
		TTSProvider:            provider,
		DeepgramKey:            deepgramKey,
		DeepgramModel:          deepgramModel,
		SupabaseURL:            supabaseURL,
		SupabaseServiceRoleKey: supabaseKey,
		SupabaseBucket:         bucket,
	}
}
