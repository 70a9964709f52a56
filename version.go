package keyvault

// Version of the keyvault library
const Version = "1.0.0"

// userAgent identifies the library in the User-Agent header of every
// request.
const userAgent = "hengadev-keyvault/" + Version
