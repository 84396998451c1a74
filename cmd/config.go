package cmd

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"synthtest.dev/pkg/synthtest/internal/adapter"
	"synthtest.dev/pkg/synthtest/internal/domain"
	m "synthtest.dev/pkg/synthtest/internal/model"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "synthtest"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	envPrefix = "SYNTHTEST"

	backendKindFlagName     = "backend"
	backendModelFlagName    = "model"
	backendEndpointFlagName = "endpoint"
	verboseFlagName         = "verbose"
	reportFlagName          = "report"
	parallelFlagName        = "parallel"
	schemeFlagName          = "scheme"
	maxAttemptsFlagName     = "max-attempts"
	instructionsFlagName    = "instructions"
	diffFlagName            = "diff"
	parserFlagName          = "parser"
	recursiveFlagName       = "recursive"
	extFlagName             = "ext"
	filesListFlagName       = "files-list"

	backendKindKey        = "backend.kind"
	backendModelKey       = "backend.model"
	backendEndpointKey    = "backend.endpoint"
	backendAPIKeyKey      = "backend.api_key"
	backendStreamKey      = "backend.stream"
	backendTemperatureKey = "backend.temperature"
	backendTopPKey        = "backend.top_p"
	backendMaxTokensKey   = "backend.max_tokens"
	backendStopKey        = "backend.stop"
	backendTimeoutKey     = "backend.timeout"
	backendRPMKey         = "backend.requests_per_minute"
	backendSystemKey      = "backend.system"

	generateFilesListKey    = "generate.files_list"
	generateInstructionsKey = "generate.instructions"
	generateSchemeKey       = "generate.scheme"
	generateParallelKey     = "generate.parallel"
	generateMaxAttemptsKey  = "generate.max_attempts"
	generateRetryDelayKey   = "generate.retry_delay"
	generateReportKey       = "generate.report"
	generateDiffKey         = "generate.diff"

	extractParserKey   = "extract.parser"
	extractFamiliesKey = "extract.families"

	scanExtensionsKey = "scan.extensions"
	scanRecursiveKey  = "scan.recursive"

	defaultBackendModel       = "starcoder:7b"
	defaultBackendStream      = true
	defaultBackendTemperature = 0.5
	defaultBackendTopP        = 0.8
	defaultBackendMaxTokens   = 2048
	defaultBackendTimeout     = 300
	defaultBackendRPM         = 0
	defaultBackendSystem      = "You are an expert Python developer. Reply only with pytest test functions, without explanations."

	defaultFilesList    = "programming_files_list.txt"
	defaultInstructions = "instructions.txt"
	defaultParallel     = 1
	defaultRetryDelay   = 0
	defaultReportPath   = ".synthtest-report.yaml"
	defaultDiff         = false

	defaultScanRecursive = false

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".synthtest.log"
	defaultLogLevel      = int(slog.LevelInfo)
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var defaultScanExtensions = []string{".py"}

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return
		}

		return
	}
}

func setDefaults() {
	viper.SetDefault(configVersionKey, currentConfigVersion)

	viper.SetDefault(backendKindKey, adapter.BackendOllama)
	viper.SetDefault(backendModelKey, defaultBackendModel)
	viper.SetDefault(backendEndpointKey, "")
	viper.SetDefault(backendAPIKeyKey, "")
	viper.SetDefault(backendStreamKey, defaultBackendStream)
	viper.SetDefault(backendTemperatureKey, defaultBackendTemperature)
	viper.SetDefault(backendTopPKey, defaultBackendTopP)
	viper.SetDefault(backendMaxTokensKey, defaultBackendMaxTokens)
	viper.SetDefault(backendStopKey, []string{})
	viper.SetDefault(backendTimeoutKey, defaultBackendTimeout)
	viper.SetDefault(backendRPMKey, defaultBackendRPM)
	viper.SetDefault(backendSystemKey, defaultBackendSystem)

	viper.SetDefault(generateFilesListKey, defaultFilesList)
	viper.SetDefault(generateInstructionsKey, defaultInstructions)
	viper.SetDefault(generateSchemeKey, m.SchemeStandard)
	viper.SetDefault(generateParallelKey, defaultParallel)
	viper.SetDefault(generateMaxAttemptsKey, domain.DefaultMaxAttempts)
	viper.SetDefault(generateRetryDelayKey, defaultRetryDelay)
	viper.SetDefault(generateReportKey, defaultReportPath)
	viper.SetDefault(generateDiffKey, defaultDiff)

	viper.SetDefault(extractParserKey, adapter.ScannerRegex)
	viper.SetDefault(extractFamiliesKey, formatFamilyRules(domain.DefaultFamilyRules()))

	viper.SetDefault(scanExtensionsKey, defaultScanExtensions)
	viper.SetDefault(scanRecursiveKey, defaultScanRecursive)

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)
}

func formatFamilyRules(rules []domain.FamilyRule) []string {
	entries := make([]string, 0, len(rules))
	for _, rule := range rules {
		entries = append(entries, rule.Prefix+"="+string(rule.Canonical))
	}

	return entries
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger configures the global slog logger.
//
// By default it logs at Info; if verbose is true it logs at Debug.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
