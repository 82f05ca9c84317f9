package ledger

const erc20ABI = `[{
    "name": "transfer",
    "type": "function",
    "inputs": [
        {"name": "recipient", "type": "address"},
        {"name": "amount", "type": "uint256"}
    ],
    "outputs": [{"name": "", "type": "bool"}]
}, {
    "name": "transferFrom",
    "type": "function",
    "inputs": [
        {"name": "sender", "type": "address"},
        {"name": "recipient", "type": "address"},
        {"name": "amount", "type": "uint256"}
    ],
    "outputs": [{"name": "", "type": "bool"}]
}, {
    "name": "balanceOf",
    "type": "function",
    "stateMutability": "view",
    "inputs": [
        {"name": "account", "type": "address"}
    ],
    "outputs": [{"name": "", "type": "uint256"}]
}]`
