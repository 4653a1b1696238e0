package config

import "github.com/alecthomas/kingpin/v2"

// Flags holds the values of the command-line flags registered by BindFlags.
type Flags struct {
	configFile *string
	envFile    *string

	port           *string
	rateLimitRPS   *float64
	rateLimitBurst *int
	logEnv         *string

	sourceKind      *string
	csvPath         *string
	spreadsheetID   *string
	sheetName       *string
	credentialsFile *string

	minStudents       *int
	hourlyRate        *float64
	availableHours    *float64
	contributions     *float64
	fixedCosts        *float64
	includeFixedCosts *string
}

// BindFlags registers the configuration flags on app. Numeric flags default
// to -1, meaning "not given".
func BindFlags(app *kingpin.Application) *Flags {
	f := &Flags{}
	f.configFile = app.Flag("config", "Path to YAML configuration file").String()
	f.envFile = app.Flag("env-file", "Path to a .env file (default .env, ignored when missing)").String()

	f.port = app.Flag("port", "HTTP port exposed by the service").String()
	f.rateLimitRPS = app.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	f.rateLimitBurst = app.Flag("rate-limit-burst", "Burst capacity of each client bucket (values below 1 become 1)").Default("-1").Int()
	f.logEnv = app.Flag("log-env", "Logger flavour: production or development").String()

	f.sourceKind = app.Flag("source", "Catalog source: builtin, csv or sheets").String()
	f.csvPath = app.Flag("csv", "Path to the exported worksheet CSV").String()
	f.spreadsheetID = app.Flag("spreadsheet-id", "Google Sheets spreadsheet ID").String()
	f.sheetName = app.Flag("sheet", "Worksheet name inside the spreadsheet").String()
	f.credentialsFile = app.Flag("credentials", "Service account credentials JSON file").String()

	f.minStudents = app.Flag("min-students", "Minimum students per theory or group class").Default("-1").Int()
	f.hourlyRate = app.Flag("hourly-rate", "Instructor hourly rate in euro").Default("-1").Float64()
	f.availableHours = app.Flag("available-hours", "Teaching hours available per week").Default("-1").Float64()
	f.contributions = app.Flag("contributions", "Contributions in euro, added once to the term net result").Default("-1").Float64()
	f.fixedCosts = app.Flag("fixed-costs", "Fixed costs in euro, subtracted once from the term net result").Default("-1").Float64()
	f.includeFixedCosts = app.Flag("include-fixed-costs", "Fold fixed costs into the package total cost instead of the term net result").Enum("true", "false")

	return f
}

// Overrides converts the parsed flags into CLIOverrides. Call it after the
// application has parsed its arguments.
func (f *Flags) Overrides() *CLIOverrides {
	o := &CLIOverrides{
		ConfigFile:      *f.configFile,
		EnvFile:         *f.envFile,
		Port:            nonEmpty(f.port),
		LogEnv:          nonEmpty(f.logEnv),
		SourceKind:      nonEmpty(f.sourceKind),
		CSVPath:         nonEmpty(f.csvPath),
		SpreadsheetID:   nonEmpty(f.spreadsheetID),
		SheetName:       nonEmpty(f.sheetName),
		CredentialsFile: nonEmpty(f.credentialsFile),

		RateLimitRPS:          nonNegative(f.rateLimitRPS),
		HourlyRate:            nonNegative(f.hourlyRate),
		AvailableHoursPerWeek: nonNegative(f.availableHours),
		Contributions:         nonNegative(f.contributions),
		FixedCosts:            nonNegative(f.fixedCosts),
	}
	if *f.rateLimitBurst >= 0 {
		o.RateLimitBurst = f.rateLimitBurst
	}
	if *f.minStudents >= 0 {
		o.MinStudentsPerClass = f.minStudents
	}
	if *f.includeFixedCosts != "" {
		include := *f.includeFixedCosts == "true"
		o.IncludeFixedCostsInTotal = &include
	}
	return o
}

func nonEmpty(v *string) *string {
	if v == nil || *v == "" {
		return nil
	}
	return v
}

func nonNegative(v *float64) *float64 {
	if v == nil || *v < 0 {
		return nil
	}
	return v
}
