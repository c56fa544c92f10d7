package board

import (
	"math/bits"

	"github.com/notnil/chess"
)

var (
	knightMasks [64]uint64
	kingMasks   [64]uint64
)

var (
	knightOffsets = [8][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingOffsets   = [8][2]int{{0, 1}, {1, 1}, {1, 0}, {1, -1}, {0, -1}, {-1, -1}, {-1, 0}, {-1, 1}}
	bishopDirs    = [4][2]int{{1, 1}, {1, -1}, {-1, -1}, {-1, 1}}
	rookDirs      = [4][2]int{{0, 1}, {1, 0}, {0, -1}, {-1, 0}}
)

func init() {
	for sq := 0; sq < 64; sq++ {
		file := sq % 8
		rank := sq / 8
		for _, offset := range knightOffsets {
			knightMasks[sq] |= squareBit(file+offset[0], rank+offset[1])
		}
		for _, offset := range kingOffsets {
			kingMasks[sq] |= squareBit(file+offset[0], rank+offset[1])
		}
	}
}

// squareBit returns the bit for the given file/rank, or 0 when off the board.
func squareBit(file, rank int) uint64 {
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return 0
	}
	return 1 << uint(rank*8+file)
}

// ColorIndex maps a color to a 0/1 array index.
func ColorIndex(color chess.Color) int {
	if color == chess.Black {
		return 1
	}
	return 0
}

// bitboards is the per-type piece layout of a board.
type bitboards struct {
	occupied uint64
	pieces   [2][8]uint64
}

func newBitboards(board *chess.Board) bitboards {
	var bb bitboards
	for sq, piece := range board.SquareMap() {
		bit := uint64(1) << uint(sq)
		bb.occupied |= bit
		bb.pieces[ColorIndex(piece.Color())][piece.Type()] |= bit
	}
	return bb
}

// pawnCaptureMask returns the squares a pawn of the given color attacks.
func pawnCaptureMask(sq chess.Square, color chess.Color) uint64 {
	file := int(sq.File())
	rank := int(sq.Rank())

	step := 1
	if color == chess.Black {
		step = -1
	}
	return squareBit(file-1, rank+step) | squareBit(file+1, rank+step)
}

// slidingAttacks walks rays from the square until a blocker, inclusive.
func slidingAttacks(sq chess.Square, occupied uint64, dirs [4][2]int) uint64 {
	var set uint64
	for _, dir := range dirs {
		file := int(sq.File()) + dir[0]
		rank := int(sq.Rank()) + dir[1]
		for {
			bit := squareBit(file, rank)
			if bit == 0 {
				break
			}
			set |= bit
			if occupied&bit != 0 {
				break
			}
			file += dir[0]
			rank += dir[1]
		}
	}
	return set
}

// IsAttacked reports whether the given square is attacked by any piece of the
// given color, using reverse lookups from the target square.
func IsAttacked(board *chess.Board, sq chess.Square, by chess.Color) bool {
	bb := newBitboards(board)
	side := bb.pieces[ColorIndex(by)]

	if knightMasks[sq]&side[chess.Knight] != 0 {
		return true
	}
	if kingMasks[sq]&side[chess.King] != 0 {
		return true
	}
	// A pawn of color c attacks sq exactly when sq's capture mask for the
	// opposite color contains that pawn.
	if pawnCaptureMask(sq, by.Other())&side[chess.Pawn] != 0 {
		return true
	}
	if slidingAttacks(sq, bb.occupied, bishopDirs)&(side[chess.Bishop]|side[chess.Queen]) != 0 {
		return true
	}
	if slidingAttacks(sq, bb.occupied, rookDirs)&(side[chess.Rook]|side[chess.Queen]) != 0 {
		return true
	}
	return false
}

// AttackInfo holds the attack sets of a position: per-origin attack squares
// and the union per color. Squares occupied by friendly pieces are included,
// so the per-color unions double as defense maps.
type AttackInfo struct {
	From    [64]uint64
	ByColor [2]uint64
}

// ComputeAttacks builds the attack sets for every piece on the board.
func ComputeAttacks(board *chess.Board) *AttackInfo {
	bb := newBitboards(board)
	info := &AttackInfo{}

	for sq, piece := range board.SquareMap() {
		var set uint64
		switch piece.Type() {
		case chess.Pawn:
			set = pawnCaptureMask(sq, piece.Color())
		case chess.Knight:
			set = knightMasks[sq]
		case chess.Bishop:
			set = slidingAttacks(sq, bb.occupied, bishopDirs)
		case chess.Rook:
			set = slidingAttacks(sq, bb.occupied, rookDirs)
		case chess.Queen:
			set = slidingAttacks(sq, bb.occupied, bishopDirs) | slidingAttacks(sq, bb.occupied, rookDirs)
		case chess.King:
			set = kingMasks[sq]
		}
		info.From[sq] = set
		info.ByColor[ColorIndex(piece.Color())] |= set
	}

	return info
}

// Count returns the number of squares attacked from the given square.
func (a *AttackInfo) Count(sq chess.Square) int {
	return bits.OnesCount64(a.From[sq])
}

// Attacks reports whether the given color attacks the given square.
func (a *AttackInfo) Attacks(color chess.Color, sq chess.Square) bool {
	return a.ByColor[ColorIndex(color)]&(1<<uint(sq)) != 0
}
