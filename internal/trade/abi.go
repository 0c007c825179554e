package trade

// EnergyTradeABI is the fixed call surface of the energy-trading contract.
// The address and interface are configuration, not negotiated at runtime.
const EnergyTradeABI = `[
  {
    "inputs": [{"internalType": "uint256", "name": "tradeId", "type": "uint256"}],
    "name": "buyEnergy",
    "outputs": [],
    "stateMutability": "payable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "uint256", "name": "energyAmount", "type": "uint256"},
      {"internalType": "uint256", "name": "pricePerUnit", "type": "uint256"}
    ],
    "name": "listEnergy",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "getTotalTrades",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "tradeId", "type": "uint256"}],
    "name": "getTrade",
    "outputs": [
      {"internalType": "address", "name": "producer", "type": "address"},
      {"internalType": "uint256", "name": "energyAmount", "type": "uint256"},
      {"internalType": "uint256", "name": "pricePerUnit", "type": "uint256"},
      {"internalType": "address", "name": "consumer", "type": "address"},
      {"internalType": "bool", "name": "executed", "type": "bool"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "address", "name": "consumer", "type": "address"}],
    "name": "getTradesByConsumer",
    "outputs": [{"internalType": "uint256[]", "name": "", "type": "uint256[]"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "uint256", "name": "tradeId", "type": "uint256"},
      {"indexed": false, "internalType": "address", "name": "producer", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "energyAmount", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "pricePerUnit", "type": "uint256"}
    ],
    "name": "EnergyListed",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "uint256", "name": "tradeId", "type": "uint256"},
      {"indexed": false, "internalType": "address", "name": "consumer", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "totalPrice", "type": "uint256"}
    ],
    "name": "TradeExecuted",
    "type": "event"
  }
]`
