package config

// Default values for configuration options. These are "layer 0" of the
// override chain.
const (
	DefaultDomain   = "shanoir.irisa.fr"
	DefaultFormat   = "nifti"
	defaultTimeout  = "240s"
	defaultLogLevel = "info"
)

// DefaultFile returns a File populated with all default values. It is the
// starting point for TOML decoding, so keys missing from the file keep
// their defaults.
func DefaultFile() *File {
	return &File{
		Domain:   DefaultDomain,
		Format:   DefaultFormat,
		Timeout:  defaultTimeout,
		LogLevel: defaultLogLevel,
	}
}
