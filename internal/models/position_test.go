package models

import (
	"encoding/json"
	"testing"

	"github.com/notnil/chess"
	"github.com/stretchr/testify/require"
)

func TestNewNormalizedFEN(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "SixFields",
			input: StartingFEN,
			want:  "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -",
		},
		{
			name:  "FourFields",
			input: "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -",
			want:  "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -",
		},
		{
			name:  "StripsCounters",
			input: "4k3/8/8/8/8/8/8/4K3 w - - 42 99",
			want:  "4k3/8/8/8/8/8/8/4K3 w - -",
		},
		{
			name:  "KeepsEnPassant",
			input: "rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1",
			want:  "rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3",
		},
		{
			name:    "WrongFieldCount",
			input:   "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq",
			wantErr: true,
		},
		{
			name:    "Garbage",
			input:   "not a fen at all",
			wantErr: true,
		},
		{
			name:    "BadPlacement",
			input:   "rnbqkbnr/pppppppp/9/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
			wantErr: true,
		},
		{
			name:    "Empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			nfen, err := NewNormalizedFEN(test.input)
			if test.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.want, nfen.String())
		})
	}
}

func TestNormalizedFENFullFEN(t *testing.T) {
	nfen := NewNormalizedFENMust(StartingFEN)
	require.Equal(t, StartingFEN, nfen.FullFEN())

	_, err := chess.FEN(nfen.FullFEN())
	require.NoError(t, err)
}

func TestNormalizedFENIsZero(t *testing.T) {
	var zero NormalizedFEN
	require.True(t, zero.IsZero())
	require.False(t, NewNormalizedFENMust(StartingFEN).IsZero())
}

func TestNormalizedFENTurn(t *testing.T) {
	require.Equal(t, chess.White, NewNormalizedFENMust(StartingFEN).Turn())
	require.Equal(t, chess.Black, NewNormalizedFENMust("4k3/8/8/8/8/8/8/4K3 b - - 0 1").Turn())
}

func TestNormalizedFENPieceCount(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		want int
	}{
		{
			name: "Start",
			fen:  StartingFEN,
			want: 32,
		},
		{
			name: "KingsOnly",
			fen:  "4k3/8/8/8/8/8/8/4K3 w - - 0 1",
			want: 2,
		},
		{
			name: "RookEndgame",
			fen:  "6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1",
			want: 9,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			nfen := NewNormalizedFENMust(test.fen)
			require.Equal(t, test.want, nfen.PieceCount())
		})
	}
}

func TestNormalizedFENValidateMove(t *testing.T) {
	tests := []struct {
		name    string
		fen     string
		move    string
		wantErr bool
	}{
		{
			name: "LegalPawnPush",
			fen:  StartingFEN,
			move: "e2e4",
		},
		{
			name: "LegalKnight",
			fen:  StartingFEN,
			move: "g1f3",
		},
		{
			name:    "IllegalJump",
			fen:     StartingFEN,
			move:    "e2e5",
			wantErr: true,
		},
		{
			name:    "Empty",
			fen:     StartingFEN,
			move:    "",
			wantErr: true,
		},
		{
			name: "Promotion",
			fen:  "8/P6k/8/8/8/8/8/6K1 w - - 0 1",
			move: "a7a8q",
		},
		{
			name:    "PromotionWithoutPiece",
			fen:     "8/P6k/8/8/8/8/8/6K1 w - - 0 1",
			move:    "a7a8",
			wantErr: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			nfen := NewNormalizedFENMust(test.fen)
			err := nfen.ValidateMove(test.move)
			if test.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNormalizedFENJSON(t *testing.T) {
	nfen := NewNormalizedFENMust(StartingFEN)

	data, err := json.Marshal(nfen)
	require.NoError(t, err)
	require.Equal(t, `"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -"`, string(data))

	var parsed NormalizedFEN
	require.NoError(t, json.Unmarshal(data, &parsed))
	require.Equal(t, nfen, parsed)

	var zero NormalizedFEN
	require.NoError(t, json.Unmarshal([]byte(`""`), &zero))
	require.True(t, zero.IsZero())

	require.Error(t, json.Unmarshal([]byte(`123`), &parsed))
	require.Error(t, json.Unmarshal([]byte(`"not a fen"`), &parsed))
}

func TestNormalizedFENScan(t *testing.T) {
	tests := []struct {
		name       string
		input      interface{}
		want       string
		wantErr    bool
		wantErrMsg string
	}{
		{
			name:  "Bytes",
			input: []byte("4k3/8/8/8/8/8/8/4K3 w - -"),
			want:  "4k3/8/8/8/8/8/8/4K3 w - -",
		},
		{
			name:  "String",
			input: "4k3/8/8/8/8/8/8/4K3 b - -",
			want:  "4k3/8/8/8/8/8/8/4K3 b - -",
		},
		{
			name:       "InvalidType",
			input:      123,
			wantErr:    true,
			wantErrMsg: "cannot scan int into NormalizedFEN",
		},
		{
			name:    "InvalidFEN",
			input:   "garbage",
			wantErr: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var nfen NormalizedFEN
			err := nfen.Scan(test.input)
			if test.wantErr {
				require.Error(t, err)
				if test.wantErrMsg != "" {
					require.Equal(t, test.wantErrMsg, err.Error())
				}
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.want, nfen.String())
		})
	}
}
