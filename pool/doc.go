// Package pool
// Author: momentics <momentics@gmail.com>
//
// Reusable scratch memory for the transfer engine. Body streaming draws
// fixed-size copy buffers from a BytePool instead of allocating per read.
package pool
