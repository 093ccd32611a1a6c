// Package cli implements the patchbridge command-line tool used to prepare
// and debug a plugin directory without starting a server.
//
// # Commands
//
// inspect: validate plugin archives without loading them
//
//	patchbridge inspect plugins/Economy.zip plugins/Shops.zip
//	patchbridge inspect --format json plugins/*.zip
//
// resolve: download library coordinates and their runtime dependencies
//
//	patchbridge resolve --cache plugins/patchbridge-libs \
//		com.google.code.gson:gson:2.10.1
//	patchbridge resolve --file libraries.txt \
//		--repositories papermc=https://repo.papermc.io/repository/maven-public/
//
// cache: maintain a local library cache
//
//	patchbridge cache list --dir plugins/patchbridge-libs
//	patchbridge cache verify --dir plugins/patchbridge-libs
//	patchbridge cache prune --dir plugins/patchbridge-libs --max-age 168h
//	patchbridge cache clear --dir plugins/patchbridge-libs
//
// order: print the load order of a plugin directory
//
//	patchbridge order --dir plugins
//	patchbridge order --dir plugins --graph > graph.json
//
// serve: run the host standalone with the admin API, configured from the
// PATCHBRIDGE_* environment
//
//	patchbridge serve --plugins-dir plugins --admin-addr :9090
//
// Structured output (--format json or yaml) goes to stdout; logs go to
// stderr.
package cli
