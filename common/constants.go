package common

// Version of the inscriber CLI.
const Version = "v0.1.0"
