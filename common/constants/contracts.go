package constants

type ContractName string

const (
	RewardClaimContract ContractName = "RewardClaim"
	UFOContract         ContractName = "UFO"
	ShipNFTContract     ContractName = "ShipNFT"
	StationNFTContract  ContractName = "StationNFT"
	MarketplaceContract ContractName = "Marketplace"
	PackSaleContract    ContractName = "PackSale"
)

// RewardClaim view methods read by the node.
const (
	MethodGetFleetPower      = "getFleetPower"
	MethodGetTotalFleetPower = "getTotalFleetPower"
	MethodBaseEmissionRate   = "baseEmissionRate"
	MethodTotalEmitted       = "totalEmitted"
)
