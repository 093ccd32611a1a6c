// Package plugins loads untrusted plugin archives into isolated environments.
//
// # Overview
//
// A plugin archive is a zip (or jar) file with a plugin.yml descriptor at
// its root and Go source under src/<import path>/. Each archive gets its own
// Environment: an interpreter whose source filesystem is the archive
// followed by its classpath entries, and which sees only the standard
// library and pluginapi from the host. Packages defined by one plugin are
// invisible to every other plugin.
//
// # Classpath
//
// The classpath is assembled in order, each stage deduplicated:
//
//  1. extra entries, split on os.PathListSeparator, kept only if they exist
//  2. libraries declared by the plugin, resolved into
//     <archive dir>/patchbridge-libs
//
// Source lookups take the first layer that has the path.
//
// # Usage Example
//
//	loader := plugins.NewLoader(
//		plugins.WithResolver(resolver.New()),
//		plugins.WithLogger(logger),
//	)
//
//	inst := loader.CreatePlugin("plugins/greeter.zip", "example.com/greeter.Greeter", "", "")
//	if inst == nil {
//		// the failure has been logged
//	}
//	defer inst.Close()
//
//	if err := loader.Enable(inst); err != nil {
//		logger.WithError(err).Error("enable failed")
//	}
//
// Manager drives a whole directory: Discover, LoadAll in dependency order,
// EnableAll, and DisableAll in reverse.
//
// # Related Packages
//
//   - pkg/pluginapi: the API plugins are written against
//   - pkg/dependencies: load ordering
//   - pkg/resolver: library resolution
package plugins
