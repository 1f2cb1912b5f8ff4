package core

// Version is the alarmd release version.
const Version = "0.3.0"
