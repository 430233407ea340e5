package protocol

// This package implements parsing and serialising of the wg-dynamic
// configuration-exchange protocol.
//
// The protocol is text based and newline delimited. A message is one
// command line, zero or more attribute lines, and a terminating blank
// line:
//
//   ```
//   <command-key>=<version>\n
//   <attr-key>=<value>\n
//   ...
//   \n
//   ```
//
// - Lines are `\n` delimited; null bytes are forbidden anywhere.
// - A single line may not exceed MaxLineSize bytes.
// - The only supported version is 1. Any other value on the command
//   line is rejected as unsupported.
//
// === Keys
//
// Command keys (first line only):
//
// - `request_ip` - the peer asks for an address lease
//
// Attribute keys (body lines):
//
// - `ip4`, `ip6`   - `address/prefix`; the empty string means "clear",
//                    i.e. the zero address with prefix 0
// - `leasestart`   - unix time the lease begins, decimal uint32
// - `leasetime`    - lease duration in seconds, decimal uint32
// - `errno`        - 0 on success, non-zero on failure
// - `errmsg`       - human readable failure text, truncated to
//                    MaxErrmsgLen bytes
//
// === Incremental parsing
//
// The transport hands the parser whatever chunks the socket produces.
// Request.Feed resumes cleanly across chunk boundaries: a line without
// its newline yet is stashed and prepended to the next chunk, and the
// decoded result is byte-for-byte independent of where the boundaries
// fall.
//
// === Example exchange
//
//   ```
//   > request_ip=1\n
//   > ip4=192.168.4.7/32\n
//   > \n
//   < request_ip=1\n
//   < ip4=192.168.4.7/32\n
//   < leasestart=1719227400\n
//   < leasetime=3600\n
//   < errno=0\n
//   < \n
//   ```
