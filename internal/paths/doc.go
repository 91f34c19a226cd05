// Provides platform-appropriate paths for spacebake.
//
// All paths follow XDG conventions on Linux and platform-native conventions
// on macOS and Windows. The program name "spacebake" is used as the
// subdirectory under each base path.
package paths
