// Package environment decides where user-installed Swift packages live and
// describes the environment handed to the kernel process.
//
// Supported layouts:
//
//   - <conda_env>/swift-env when a conda environment is active, e.g.
//     ~/anaconda3/envs/test/swift-env.
//   - <virtualenv_parent>/swift-env when the interpreter runs inside a
//     virtualenv. A virtualenv at ~/projects/myproject/env resolves to
//     ~/projects/myproject/swift-env.
//   - ~/swift-env otherwise. Python versions are not separated.
package environment

import (
	"path/filepath"
)

const (
	// CondaPrefixEnv is set by conda to the root of the active environment.
	CondaPrefixEnv = "CONDA_PREFIX"
	// SearchPathEnv tells LLDB in the kernel where compiled modules live.
	SearchPathEnv = "SWIFT_IMPORT_SEARCH_PATH"
	// EnvDirName is the directory holding installed Swift packages.
	EnvDirName = "swift-env"
	// ModulesDirName is the subdirectory of the install base holding modules.
	ModulesDirName = "modules"
)

// Prefixes are the installation prefixes an interpreter reports about itself.
type Prefixes struct {
	// Prefix is the interpreter's effective prefix (sys.prefix).
	Prefix string
	// BasePrefix is the prefix of the base installation (sys.base_prefix).
	BasePrefix string
}

// IsVirtual reports whether the interpreter runs inside a virtual
// environment. Unknown prefixes never count as virtual.
func (p Prefixes) IsVirtual() bool {
	return p.Prefix != "" && p.BasePrefix != "" && p.Prefix != p.BasePrefix
}

// Kind names the isolation mechanism a resolution was based on.
type Kind string

const (
	KindConda      Kind = "conda"
	KindVirtualenv Kind = "virtualenv"
	KindHome       Kind = "home"
)

// Resolution is the outcome of ResolveBase together with the branch taken.
type Resolution struct {
	Kind Kind
	Base string
}

// SearchPath returns the module search path under the resolved base.
func (r Resolution) SearchPath() string {
	return ModuleSearchPath(r.Base)
}

// Resolve picks the package install base. The first match wins: an active
// conda environment, then a virtualenv, then the home directory. It never
// touches the filesystem and always returns a path.
func Resolve(env Snapshot, prefixes Prefixes, home string) Resolution {
	if conda, ok := env.Lookup(CondaPrefixEnv); ok {
		return Resolution{Kind: KindConda, Base: filepath.Join(conda, EnvDirName)}
	}

	if prefixes.IsVirtual() {
		return Resolution{Kind: KindVirtualenv, Base: filepath.Join(filepath.Dir(prefixes.Prefix), EnvDirName)}
	}

	return Resolution{Kind: KindHome, Base: filepath.Join(home, EnvDirName)}
}

// ResolveBase is Resolve without the branch information.
func ResolveBase(env Snapshot, prefixes Prefixes, home string) string {
	return Resolve(env, prefixes, home).Base
}

// ModuleSearchPath returns the directory exported as SWIFT_IMPORT_SEARCH_PATH
// for the given install base.
func ModuleSearchPath(base string) string {
	return filepath.Join(base, ModulesDirName)
}
