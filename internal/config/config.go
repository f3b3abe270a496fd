package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// HourRange is a range of hours on the 24h clock, e.g. 0–8 for overnight.
type HourRange struct {
	Start float64
	End   float64
}

// Config holds application configuration.
//
// All physical values are in kW, hours, degrees Celsius and combinations
// thereof; prices are in pence per kWh.
type Config struct {
	// Logging
	LogLevel  string
	LogPretty bool

	// Data & APIs
	DatabasePath    string
	MetOfficeAPIKey string
	Latitude        float64
	Longitude       float64

	// Agile tariff
	TimeZone          string
	OctopusProduct    string
	OctopusRegion     string
	OctopusBaseURL    string
	MetOfficeBaseURL  string

	// Building model. The property is modelled as three coupled heat
	// reservoirs: the air and fast-responding contents, the slow-responding
	// contents, and a storage heater.
	FastHeatCapacity      float64 // C
	ConductanceToOutdoors float64 // k
	SlowHeatCapacity      float64 // C_q
	SlowConductance       float64 // h

	// Storage heater behaviour
	StorageHeaterSize          float64 // total capacity when fully charged, kWh
	StorageHeaterPower         float64 // charge power, kW
	StorageHeaterMaxTemp       float64 // internal thermostat limit, °C
	StorageHeaterChargeLeakage float64 // extra leakage power at full temperature while charging, kW
	StorageHeaterStoreTime     float64 // hours for which a full charge stays noticeably warm

	// Direct and incidental heating
	DirectHeatingPower float64 // maximum timer-driven direct heating, kW
	OtherHeatOutput    float64 // daily incidental heat from occupants and appliances, kWh

	// Acceptable temperature ranges
	MinTemp       float64
	MaxTemp       float64
	AbsentHours   []HourRange
	AbsentMinTemp float64
	AbsentMaxTemp float64

	// Optimisation
	HeatingPeriodPenalty   float64 // pence of saving required to justify an extra heating period
	IgnoreInitialTempHours float64
	OptimizationPopSize    int
	OptimizationWorkers    int
	OptimizationMaxGens    int

	// Bulletin
	SMTPServer    string
	SMTPPort      int
	SMTPPassword  string
	SenderAddress string
	ToAddress     string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	absentHours, err := parseHourRanges(getEnv("ABSENT_HOURS", "0-8"))
	if err != nil {
		return nil, fmt.Errorf("invalid ABSENT_HOURS: %w", err)
	}

	cfg := &Config{
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvAsBool("LOG_PRETTY", true),

		DatabasePath:    getEnv("DATABASE_PATH", "./data/heatplan.db"),
		MetOfficeAPIKey: getEnv("METOFFICE_API_KEY", ""),
		Latitude:        getEnvAsFloat("LATITUDE", 51.508),
		Longitude:       getEnvAsFloat("LONGITUDE", -0.128),

		TimeZone:         getEnv("TIME_ZONE", "Europe/London"),
		OctopusProduct:   getEnv("OCTOPUS_AGILE_PRODUCT_CODE", "AGILE-FLEX-22-11-25"),
		OctopusRegion:    getEnv("OCTOPUS_AGILE_REGION_CODE", "A"),
		OctopusBaseURL:   getEnv("OCTOPUS_BASE_URL", "https://api.octopus.energy"),
		MetOfficeBaseURL: getEnv("METOFFICE_BASE_URL", "https://data.hub.api.metoffice.gov.uk"),

		FastHeatCapacity:      getEnvAsFloat("FAST_HEAT_CAPACITY", 0.1),
		ConductanceToOutdoors: getEnvAsFloat("CONDUCTANCE_TO_OUTDOORS", 0.1),
		SlowHeatCapacity:      getEnvAsFloat("SLOW_HEAT_CAPACITY", 5),
		SlowConductance:       getEnvAsFloat("SLOW_CONDUCTANCE", 1),

		StorageHeaterSize:          getEnvAsFloat("STORAGE_HEATER_SIZE", 3),
		StorageHeaterPower:         getEnvAsFloat("STORAGE_HEATER_POWER", 3),
		StorageHeaterMaxTemp:       getEnvAsFloat("STORAGE_HEATER_MAX_TEMP", 50),
		StorageHeaterChargeLeakage: getEnvAsFloat("STORAGE_HEATER_CHARGE_LEAKAGE", 1),
		StorageHeaterStoreTime:     getEnvAsFloat("STORAGE_HEATER_STORE_TIME", 48),

		DirectHeatingPower: getEnvAsFloat("DIRECT_HEATING_POWER", 3),
		OtherHeatOutput:    getEnvAsFloat("OTHER_HEAT_OUTPUT", 6),

		MinTemp:       getEnvAsFloat("MIN_TEMP", 16),
		MaxTemp:       getEnvAsFloat("MAX_TEMP", 24),
		AbsentHours:   absentHours,
		AbsentMinTemp: getEnvAsFloat("ABS_MIN_TEMP", 5),
		AbsentMaxTemp: getEnvAsFloat("ABS_MAX_TEMP", 30),

		HeatingPeriodPenalty:   getEnvAsFloat("HEATING_PERIOD_PENALTY", 5),
		IgnoreInitialTempHours: getEnvAsFloat("IGNORE_INITIAL_TEMP_HOURS", 2),
		OptimizationPopSize:    getEnvAsInt("HEAT_OPTIMISATION_POPSIZE", 64),
		OptimizationWorkers:    getEnvAsInt("HEAT_OPTIMISATION_WORKERS", 6),
		OptimizationMaxGens:    getEnvAsInt("HEAT_OPTIMISATION_MAX_GENERATIONS", 1000),

		SMTPServer:    getEnv("SMTP_SERVER", "smtp.gmail.com"),
		SMTPPort:      getEnvAsInt("SMTP_PORT", 465),
		SMTPPassword:  getEnv("SMTP_AUTH_PASS", ""),
		SenderAddress: getEnv("SENDER_ADDRESS", ""),
		ToAddress:     getEnv("TO_ADDRESS", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.MinTemp >= c.MaxTemp {
		return fmt.Errorf("MIN_TEMP must be below MAX_TEMP")
	}
	for _, r := range c.AbsentHours {
		if r.Start >= r.End {
			return fmt.Errorf("ABSENT_HOURS range %g-%g is empty", r.Start, r.End)
		}
	}
	return nil
}

// Location resolves the tariff time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIME_ZONE %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

// parseHourRanges parses a comma-separated list of hour ranges, e.g. "0-8,9-17".
func parseHourRanges(s string) ([]HourRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []HourRange
	for _, part := range strings.Split(s, ",") {
		bounds := strings.SplitN(strings.TrimSpace(part), "-", 2)
		if len(bounds) != 2 {
			return nil, fmt.Errorf("range %q must look like start-end", part)
		}
		start, err := strconv.ParseFloat(strings.TrimSpace(bounds[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("range %q: %w", part, err)
		}
		end, err := strconv.ParseFloat(strings.TrimSpace(bounds[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("range %q: %w", part, err)
		}
		out = append(out, HourRange{Start: start, End: end})
	}
	return out, nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
