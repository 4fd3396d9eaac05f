// Package config centralizes the environment-driven knobs the core
// reads at process start: the dynamic-eval backend policy and a handful of process-wide constants.
package config

// Version is the current core version, set at build time by the
// release script via -ldflags, or left at this default otherwise.
var Version = "0.1.0"

// PersistentSlotPackage is the synthetic package under which every
// persistent lexical slot is addressed, as
// PersistentSlotPackage::_BEGIN_<id>::name.
const PersistentSlotPackage = "PerlOnJava"
