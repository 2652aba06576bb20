package types

import "strconv"

// ChainID identifies an EVM network
type ChainID uint64

const (
	Mainnet         ChainID = 1
	Ropsten         ChainID = 3
	Rinkeby         ChainID = 4
	Goerli          ChainID = 5
	Optimism        ChainID = 10
	Kovan           ChainID = 42
	OptimisticKovan ChainID = 69
	Polygon         ChainID = 137
	Celo            ChainID = 42220
	CeloAlfajores   ChainID = 44787
	PolygonMumbai   ChainID = 80001
	ArbitrumOne     ChainID = 42161
	ArbitrumRinkeby ChainID = 421611
)

var chainNames = map[ChainID]string{
	Mainnet:         "mainnet",
	Ropsten:         "ropsten",
	Rinkeby:         "rinkeby",
	Goerli:          "goerli",
	Optimism:        "optimism",
	Kovan:           "kovan",
	OptimisticKovan: "optimistic-kovan",
	Polygon:         "polygon",
	Celo:            "celo",
	CeloAlfajores:   "celo-alfajores",
	PolygonMumbai:   "polygon-mumbai",
	ArbitrumOne:     "arbitrum-one",
	ArbitrumRinkeby: "arbitrum-rinkeby",
}

func (c ChainID) String() string {
	if name, ok := chainNames[c]; ok {
		return name
	}
	return strconv.FormatUint(uint64(c), 10)
}

// Wrapped native currency per chain. Pools always reference the wrapped form.
var wrappedNative = map[ChainID]Token{
	Mainnet:         NewToken(Mainnet, "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", 18, "WETH"),
	Ropsten:         NewToken(Ropsten, "0xc778417E063141139Fce010982780140Aa0cD5Ab", 18, "WETH"),
	Rinkeby:         NewToken(Rinkeby, "0xc778417E063141139Fce010982780140Aa0cD5Ab", 18, "WETH"),
	Goerli:          NewToken(Goerli, "0xB4FBF271143F4FBf7B91A5ded31805e42b2208d6", 18, "WETH"),
	Kovan:           NewToken(Kovan, "0xd0A1E359811322d97991E03f863a0C30C2cF029C", 18, "WETH"),
	Optimism:        NewToken(Optimism, "0x4200000000000000000000000000000000000006", 18, "WETH"),
	OptimisticKovan: NewToken(OptimisticKovan, "0x4200000000000000000000000000000000000006", 18, "WETH"),
	ArbitrumOne:     NewToken(ArbitrumOne, "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1", 18, "WETH"),
	ArbitrumRinkeby: NewToken(ArbitrumRinkeby, "0xB47e6A5f8b33b3F17603C83a0535A9dcD7E32681", 18, "WETH"),
	Polygon:         NewToken(Polygon, "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270", 18, "WMATIC"),
	PolygonMumbai:   NewToken(PolygonMumbai, "0x9c3C9283D3e44854697Cd22D3Faa240Cfb032889", 18, "WMATIC"),
	Celo:            NewToken(Celo, "0x471EcE3750Da237f93B8E339c536989b8978a438", 18, "CELO"),
	CeloAlfajores:   NewToken(CeloAlfajores, "0xF194afDf50B03e69Bd7D057c1Aa9e10c9954E4C9", 18, "CELO"),
}

// Stablecoins used to value gas in USD
var usdGasTokens = map[ChainID][]Token{
	Mainnet: {
		NewToken(Mainnet, "0x6B175474E89094C44Da98b954EedeAC495271d0F", 18, "DAI"),
		NewToken(Mainnet, "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", 6, "USDC"),
		NewToken(Mainnet, "0xdAC17F958D2ee523a2206206994597C13D831ec7", 6, "USDT"),
	},
	Goerli: {
		NewToken(Goerli, "0x07865c6E87B9F70255377e024ace6630C1Eaa37F", 6, "USDC"),
	},
	Optimism: {
		NewToken(Optimism, "0xDA10009cBd5D07dd0CeCc66161FC93D7c9000da1", 18, "DAI"),
		NewToken(Optimism, "0x7F5c764cBc14f9669B88837ca1490cCa17c31607", 6, "USDC"),
		NewToken(Optimism, "0x94b008aA00579c1307B0EF2c499aD98a8ce58e58", 6, "USDT"),
	},
	OptimisticKovan: {
		NewToken(OptimisticKovan, "0xDA10009cBd5D07dd0CeCc66161FC93D7c9000da1", 18, "DAI"),
		NewToken(OptimisticKovan, "0x3b8e53B3aB8E01Fb57D0c9E893bC4d655AA67d84", 6, "USDC"),
	},
	ArbitrumOne: {
		NewToken(ArbitrumOne, "0xDA10009cBd5D07dd0CeCc66161FC93D7c9000da1", 18, "DAI"),
		NewToken(ArbitrumOne, "0xFF970A61A04b1cA14834A43f5dE4533eBDDB5CC8", 6, "USDC"),
		NewToken(ArbitrumOne, "0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9", 6, "USDT"),
	},
	ArbitrumRinkeby: {
		NewToken(ArbitrumRinkeby, "0x09BE1692ca16e06f536F0038fF11D1dA8524aDB1", 6, "USDC"),
	},
	Polygon: {
		NewToken(Polygon, "0x8f3Cf7ad23Cd3CaDbD9735AFf958023239c6A063", 18, "DAI"),
		NewToken(Polygon, "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174", 6, "USDC"),
	},
	PolygonMumbai: {
		NewToken(PolygonMumbai, "0x001B3B4d0F3714Ca98ba10F6042DaEbF0B1B7b6F", 18, "DAI"),
	},
	Celo: {
		NewToken(Celo, "0x765DE816845861e75A25fCA122bb6898B8B1282a", 18, "cUSD"),
	},
	CeloAlfajores: {
		NewToken(CeloAlfajores, "0x874069Fa1Eb16D44d622F2e0Ca25eeA172369bC1", 18, "cUSD"),
	},
}

// WrappedNative returns the wrapped native token for a chain
func WrappedNative(chainID ChainID) (Token, bool) {
	t, ok := wrappedNative[chainID]
	return t, ok
}

// USDGasTokens returns the stablecoins used to price gas on a chain
func USDGasTokens(chainID ChainID) []Token {
	return usdGasTokens[chainID]
}
