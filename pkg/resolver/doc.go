// Package resolver downloads plugin library dependencies from Maven
// repositories into a local cache.
//
// # Coordinates
//
// Libraries are named with Maven coordinates, one per line:
//
//	com.google.code.gson:gson:2.10.1
//	org.xerial:sqlite-jdbc:jar:3.45.1.0
//	io.netty:netty-transport-native-epoll:jar:linux-x86_64:4.1.100.Final
//
// Blank lines and duplicates are ignored; the first occurrence wins.
//
// # Resolution
//
// For each coordinate the resolver walks the POM graph breadth first,
// following compile and runtime scoped, non-optional dependencies. Parent
// POMs, properties, dependencyManagement and exclusions are honored. When two
// paths reach the same group:artifact, the nearer one wins.
//
// Repositories are tried in order. Files land in the standard local
// repository layout under the cache directory and are reused on later runs
// without network access.
//
// # Failures
//
// A coordinate that cannot be resolved is logged and skipped. Resolve never
// returns an error; callers get whatever could be resolved.
package resolver
