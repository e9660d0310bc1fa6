package types

// Version is the cargoexec release. The CLI reports it and the logger
// stamps it on every record.
const Version = "0.3.0"
