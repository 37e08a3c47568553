package cells

// MaxCoord is the largest cell coordinate a 32-bit Morton number can hold
// per axis.
const MaxCoord = 1<<10 - 1

// Dilate spreads the low 10 bits of x so that two zero bits separate each
// original bit.
func Dilate(x uint32) uint32 {
	x &= MaxCoord
	x = (x | x<<16) & 0x030000FF
	x = (x | x<<8) & 0x0300F00F
	x = (x | x<<4) & 0x030C30C3
	x = (x | x<<2) & 0x09249249
	return x
}

// Undilate is the inverse of Dilate.
func Undilate(x uint32) uint32 {
	x &= 0x09249249
	x = (x | x>>2) & 0x030C30C3
	x = (x | x>>4) & 0x0300F00F
	x = (x | x>>8) & 0x030000FF
	x = (x | x>>16) & MaxCoord
	return x
}

// Morton interleaves three cell coordinates into one index, x fastest.
func Morton(c [3]int) uint32 {
	return Dilate(uint32(c[0])) | Dilate(uint32(c[1]))<<1 | Dilate(uint32(c[2]))<<2
}

// Coords recovers the coordinates of a Morton index.
func Coords(m uint32) [3]int {
	return [3]int{int(Undilate(m)), int(Undilate(m >> 1)), int(Undilate(m >> 2))}
}
