package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/shanoir/shanoir-downloader/internal/auth"
	"github.com/shanoir/shanoir-downloader/internal/config"
	"github.com/shanoir/shanoir-downloader/internal/shanoir"
)

// version is set at build time via ldflags.
var version = "dev"

// Flags, bound in newRootCmd().
var (
	flagConfigPath  string
	flagUsername    string
	flagDomain      string
	flagFormat      string
	flagOutputDir   string
	flagSearchText  string
	flagPage        int
	flagSize        int
	flagSort        string
	flagExpertMode  bool
	flagDatasetID   string
	flagDatasetIDs  string
	flagStudyID     string
	flagSubjectID   string
	flagConfigDir   string
	flagProxyURL    string
	flagCertificate string
	flagTimeout     float64
	flagLogFile     string
	flagVerbose     bool
	flagQuiet       bool
)

// defaultTimeoutSeconds matches the built-in config default.
const defaultTimeoutSeconds = 240

// logFilePerms keeps the log readable by the user only; it may contain
// dataset ids and server responses.
const logFilePerms = 0o600

// errNoMode is returned when neither a search nor any id flag was given.
// Usage has already been printed when it surfaces.
var errNoMode = errors.New("no download mode selected")

// noModeMessage is printed before the usage when nothing was asked for.
const noModeMessage = "Either --search_text, or one of --dataset_id, --dataset_ids, --study_id, " +
	"--subject_id must be given to download datasets"

// mode is what the run was asked to do.
type mode int

const (
	modeNone mode = iota
	modeSearch
	modeIDs
)

// selectMode picks the run mode from the flags alone, before anything that
// could prompt or touch the network.
func selectMode() mode {
	switch {
	case flagSearchText != "":
		return modeSearch
	case flagDatasetIDs != "" || flagDatasetID != "" || flagStudyID != "" || flagSubjectID != "":
		return modeIDs
	default:
		return modeNone
	}
}

// newRootCmd builds the shanoir-downloader command. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shanoir-downloader",
		Short: "Download datasets from a Shanoir server",
		Long: "Search and download imaging datasets from a Shanoir server.\n\n" +
			"The password is read from the shanoir_password environment variable,\n" +
			"or asked for on the terminal.",
		Version: version,
		Args:    cobra.NoArgs,
		// Silence Cobra's default error/usage printing; main handles it.
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          runRoot,
	}

	f := cmd.Flags()

	// Common.
	f.StringVarP(&flagUsername, "username", "u", "", "your shanoir username")
	f.StringVarP(&flagDomain, "domain", "d", config.DefaultDomain, "the shanoir domain to query")
	f.StringVarP(&flagFormat, "format", "f", config.DefaultFormat, "the format of the downloaded datasets (nifti or dicom)")
	f.StringVarP(&flagOutputDir, "output_folder", "o", "", "the destination folder where files will be downloaded")

	// Search.
	f.StringVar(&flagSearchText, "search_text", "", "Solr query; downloads every dataset of the result page")
	f.IntVarP(&flagPage, "page", "p", shanoir.DefaultPage, "number of the page to return")
	f.IntVarP(&flagSize, "size", "s", shanoir.DefaultPageSize, "size of the page to return")
	f.StringVar(&flagSort, "sort", shanoir.DefaultSort, "sort key and direction of the results")
	f.BoolVar(&flagExpertMode, "expert_mode", false, "use the expert mode of the Solr query")

	// Ids.
	f.StringVar(&flagDatasetID, "dataset_id", "", "id of the dataset to download")
	f.StringVar(&flagDatasetIDs, "dataset_ids", "", "path to a text file with one dataset id per line")
	f.StringVar(&flagStudyID, "study_id", "", "id of the study to download")
	f.StringVar(&flagSubjectID, "subject_id", "", "id of the subject to download")

	// Configuration.
	f.StringVarP(&flagConfigDir, "configuration_folder", "c", "",
		"ShanoirUploader configuration folder holding proxy.properties (default: newest ~/.su_v*)")
	f.StringVar(&flagProxyURL, "proxy_url", "", "proxy as user@host:port; the password is asked for")
	f.StringVar(&flagCertificate, "certificate", "", "PEM bundle of certificate authorities to trust")
	f.Float64VarP(&flagTimeout, "timeout", "t", defaultTimeoutSeconds,
		"seconds to wait for a connection or for the next bytes of a response")
	f.StringVar(&flagLogFile, "log_file", "", "log file path (default: <output_folder>/downloads<date>.log)")
	f.StringVar(&flagConfigPath, "config", "", "config file path")
	f.BoolVarP(&flagVerbose, "verbose", "v", false, "log every HTTP exchange")
	f.BoolVarP(&flagQuiet, "quiet", "q", false, "only log errors")

	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	if err := cmd.MarkFlagRequired("username"); err != nil {
		panic(err)
	}

	if err := cmd.MarkFlagRequired("output_folder"); err != nil {
		panic(err)
	}

	return cmd
}

// runRoot is the whole program once flags are parsed.
func runRoot(cmd *cobra.Command, _ []string) error {
	m := selectMode()
	if m == modeNone {
		fmt.Fprintln(cmd.ErrOrStderr(), noModeMessage)
		_ = cmd.Usage()

		return errNoMode
	}

	// A missing id file is fatal before anything else happens.
	var batch []shanoir.DatasetID
	if m == modeIDs && flagDatasetIDs != "" {
		ids, err := readDatasetIDs(flagDatasetIDs)
		if err != nil {
			return err
		}

		batch = ids
	}

	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	format, err := shanoir.ParseFormat(settings.Format)
	if err != nil {
		return err
	}

	logger, closeLog, err := openLogger(settings, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeLog()

	reportProxy(settings)

	httpClient, err := newHTTPClient(settings, logger, flagVerbose)
	if err != nil {
		return err
	}

	ctx, stop := interruptible(cmd.Context(), logger)
	defer stop()

	manager := auth.New(auth.Config{
		TokenURL: settings.TokenURL(),
		Username: settings.Username,
		Password: auth.EnvOrPrompt(config.EnvPassword),
		Status:   statusLine,
	}, httpClient, logger)

	client := shanoir.NewClient(settings.BaseURL(), httpClient, manager, logger)
	client.SetReadTimeout(settings.Timeout)
	dl := shanoir.NewDownloader(client, shanoir.DownloaderConfig{
		OutputDir: settings.OutputDir,
		Progress:  progressReporter(),
		Status:    statusLine,
	})

	logger.Info("starting",
		slog.String("version", version),
		slog.String("domain", settings.Domain),
		slog.String("username", settings.Username),
		slog.String("output_folder", settings.OutputDir),
		slog.String("format", string(format)),
	)

	if m == modeSearch {
		return interruptedError(ctx, runSearch(ctx, client, dl, format, logger))
	}

	return interruptedError(ctx, runIDs(ctx, dl, idRequest{
		batchFile: flagDatasetIDs,
		batch:     batch,
		datasetID: flagDatasetID,
		studyID:   flagStudyID,
		subjectID: flagSubjectID,
	}, format, logger))
}

// loadSettings resolves the effective configuration from the four-layer
// override chain.
func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	cli := config.CLIOverrides{
		ConfigPath: flagConfigPath,
		Username:   flagUsername,
		OutputDir:  flagOutputDir,
		ProxyURL:   flagProxyURL,
		LogFile:    flagLogFile,
	}

	// Only pass flags the user explicitly set, so the config file can
	// provide the baseline.
	if cmd.Flags().Changed("domain") {
		cli.Domain = &flagDomain
	}

	if cmd.Flags().Changed("format") {
		cli.Format = &flagFormat
	}

	if cmd.Flags().Changed("timeout") {
		d := secondsToDuration(flagTimeout)
		cli.Timeout = &d
	}

	if cmd.Flags().Changed("certificate") {
		cli.Certificate = &flagCertificate
	}

	if cmd.Flags().Changed("configuration_folder") {
		cli.ConfigurationFolder = &flagConfigDir
	}

	settings, err := config.Resolve(config.ReadEnvOverrides(), cli, auth.ReadSecret)
	if err != nil {
		return config.Settings{}, fmt.Errorf("loading config: %w", err)
	}

	return settings, nil
}

// secondsToDuration converts the --timeout value, which may be fractional.
func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// reportProxy tells the user which proxy, if any, will be used.
func reportProxy(s config.Settings) {
	switch s.ProxySource {
	case config.ProxyFileNotFound:
		statusf(flagQuiet, "Proxy configuration file not found. Proxy will be ignored.\n")
	case config.ProxyDisabled:
		statusf(flagQuiet, "Proxy disabled in %s\n", s.ProxyFile)
	case config.ProxyFromFile:
		statusf(flagQuiet, "Using proxy %s from %s\n", s.Proxy.Host, s.ProxyFile)
	case config.ProxyFromFlag:
		statusf(flagQuiet, "Using proxy %s\n", s.Proxy.Host)
	}
}

// buildLogger creates the run logger. The configured log level provides the
// baseline; --verbose and --quiet override it because CLI flags always win.
func buildLogger(configLevel string, out io.Writer) *slog.Logger {
	level := slog.LevelInfo

	switch configLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}

// openLogger opens the log file and returns a logger writing to both stdout
// and the file. The returned func closes the file.
func openLogger(s config.Settings, stdout io.Writer) (*slog.Logger, func(), error) {
	if dir := filepath.Dir(s.LogFile); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating log folder: %w", err)
		}
	}

	f, err := os.OpenFile(s.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePerms)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	logger := buildLogger(s.LogLevel, io.MultiWriter(stdout, f))

	return logger, func() { f.Close() }, nil
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
