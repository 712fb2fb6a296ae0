// Provides platform-appropriate paths for forge.
//
// Paths follow XDG conventions on Linux and platform-native conventions on
// macOS and Windows. The name "forge" is used as the subdirectory under each
// base path.
package paths
